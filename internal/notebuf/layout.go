package notebuf

// MaxNotes is the hard capacity of the buffer and of every shared region.
const MaxNotes = 2048

// Field names one parallel array of the note store. Each slot owns
// Components() consecutive float32 values in the field's array.
type Field int

const (
	FieldTime        Field = iota // start ms, end ms, track x
	FieldSize                     // width, track bottom y, track height
	FieldColorTop                 // r, g, b, a (opacity baked in)
	FieldColorBottom              // r, g, b, a (opacity baked in)
	FieldRadius                   // corner radius px
	FieldTrackIndex               // draw order
	FieldGlow                     // size px, opacity
	FieldGlowTop                  // r, g, b
	FieldGlowBottom               // r, g, b
	NumFields
)

var fieldComponents = [NumFields]int{3, 3, 4, 4, 1, 1, 2, 3, 3}

var fieldNames = [NumFields]string{
	"time", "size", "colorTop", "colorBottom", "radius", "trackIndex", "glow", "glowTop", "glowBottom",
}

func (f Field) Components() int {
	if f < 0 || f >= NumFields {
		return 0
	}
	return fieldComponents[f]
}

func (f Field) String() string {
	if f < 0 || f >= NumFields {
		return "unknown"
	}
	return fieldNames[f]
}

// Stride is the total number of float32 values a single note occupies across
// all fields.
func Stride() int {
	n := 0
	for _, c := range fieldComponents {
		n += c
	}
	return n
}

// Component offsets inside FieldTime and FieldSize.
const (
	TimeStart  = 0
	TimeEnd    = 1
	TimeTrackX = 2

	SizeWidth   = 0
	SizeBottomY = 1
	SizeHeight  = 2

	GlowSize    = 0
	GlowOpacity = 1
)
