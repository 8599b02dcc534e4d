package state

// Default board dimensions and names used when a request leaves them out.
const (
	DefaultBoardName   = "Board"
	DefaultBoardWidth  = 600
	DefaultBoardHeight = 400
)

// Stroke is one drawn line segment. Strokes are immutable once appended.
type Stroke struct {
	X1        int     `json:"x1"`
	Y1        int     `json:"y1"`
	X2        int     `json:"x2"`
	Y2        int     `json:"y2"`
	Thickness float32 `json:"thickness"`
	R         int     `json:"r"`
	G         int     `json:"g"`
	B         int     `json:"b"`
	A         int     `json:"a"`
}

type user struct {
	id   int
	name string
}

type board struct {
	id      int
	name    string
	width   int
	height  int
	members map[int]struct{}
	strokes []Stroke
}

// BoardOptions configures AddBoard. Zero values fall back to the defaults.
type BoardOptions struct {
	Name   string
	Width  int
	Height int
}

// BoardSnapshot is a point-in-time copy of a board.
type BoardSnapshot struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	Users       []string `json:"users"`
	StrokeCount int      `json:"strokeCount"`
	Strokes     []Stroke `json:"strokes,omitempty"`
}

// Stats summarizes the store contents.
type Stats struct {
	Users   int `json:"users"`
	Boards  int `json:"boards"`
	Strokes int `json:"strokes"`
}
