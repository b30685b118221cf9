package render

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/rook-computer/interlace/internal/render/layout"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Canvas is the logical drawing area screens paint into. It implements Drawer
// and is not safe for concurrent use.
type Canvas struct {
	img    *image.RGBA
	otFont *opentype.Font
	ttFont *truetype.Font
	faces  map[int]font.Face
	logger Logger
}

func NewCanvas(width, height int, logger Logger) *Canvas {
	if logger == nil {
		logger = noopLogger{}
	}
	c := &Canvas{
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		faces:  make(map[int]font.Face),
		logger: logger,
	}

	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		logger.Errorf("canvas", "font parse failed, using basicfont: %v", err)
	} else {
		c.otFont = fnt
	}
	// Titles go through freetype, which wants its own parsed font.
	if tt, err := truetype.Parse(goregular.TTF); err != nil {
		logger.Errorf("canvas", "truetype parse failed: %v", err)
	} else {
		c.ttFont = tt
	}
	return c
}

// Image exposes the backing canvas.
func (c *Canvas) Image() *image.RGBA { return c.img }

func (c *Canvas) Size() (int, int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

func (c *Canvas) FillBackground() {
	draw.Draw(c.img, c.img.Bounds(), &image.Uniform{C: Background}, image.Point{}, draw.Src)
}

func (c *Canvas) face(size int) font.Face {
	if size <= 0 {
		size = BodySize
	}
	if face, ok := c.faces[size]; ok {
		return face
	}
	if c.otFont == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(c.otFont, &opentype.FaceOptions{Size: float64(size), DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		c.logger.Errorf("canvas", "font face %dpt failed, using basicfont: %v", size, err)
		return basicfont.Face7x13
	}
	c.faces[size] = face
	return face
}

func (c *Canvas) MeasureText(text string, style TextStyle) TextMetrics {
	face := c.face(style.Size)
	metrics := face.Metrics()
	return TextMetrics{
		Width:      font.MeasureString(face, text).Ceil(),
		Height:     (metrics.Ascent + metrics.Descent).Ceil(),
		Ascent:     metrics.Ascent.Ceil(),
		Descent:    metrics.Descent.Ceil(),
		LineHeight: metrics.Height.Ceil(),
	}
}

func (c *Canvas) DrawText(text string, x, y int, style TextStyle) TextMetrics {
	metrics := c.MeasureText(text, style)
	switch style.Align {
	case TextAlignCenter:
		x -= metrics.Width / 2
	case TextAlignRight:
		x -= metrics.Width
	}
	var textColor color.Color = Foreground
	if style.Color != nil {
		textColor = style.Color
	}
	drawer := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(textColor),
		Face: c.face(style.Size),
		Dot:  fixed.P(x, y+metrics.Ascent),
	}
	drawer.DrawString(text)
	return metrics
}

func (c *Canvas) DrawTitle(text string, baselineY int) {
	width, _ := c.Size()
	if c.ttFont == nil {
		metrics := c.MeasureText(text, TextStyle{Size: TitleSize})
		c.DrawText(text, width/2, baselineY-metrics.Ascent, TextStyle{Size: TitleSize, Align: TextAlignCenter})
		return
	}

	size := float64(TitleSize)
	face := truetype.NewFace(c.ttFont, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	textWidth := font.MeasureString(face, text).Ceil()

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(c.ttFont)
	ctx.SetFontSize(size)
	ctx.SetHinting(font.HintingFull)
	ctx.SetClip(c.img.Bounds())
	ctx.SetDst(c.img)
	ctx.SetSrc(image.NewUniform(Foreground))
	if _, err := ctx.DrawString(text, freetype.Pt((width-textWidth)/2, baselineY)); err != nil {
		c.logger.Errorf("canvas", "title draw failed: %v", err)
	}
}

// DrawImageInRect scales img into rect and returns the rectangle actually
// covered.
func (c *Canvas) DrawImageInRect(img image.Image, rect image.Rectangle, mode ScaleMode) image.Rectangle {
	if img == nil {
		return image.Rectangle{}
	}
	rect = layout.Normalize(rect)
	src := img.Bounds()
	if src.Empty() || rect.Empty() {
		return image.Rectangle{}
	}

	dst := rect
	switch mode {
	case ScaleModeFit:
		dst = layout.FitAspect(rect, src.Dx(), src.Dy())
	case ScaleModeFill:
		src = layout.FitAspect(src, rect.Dx(), rect.Dy())
	}
	xdraw.ApproxBiLinear.Scale(c.img, dst, img, src, xdraw.Over, nil)
	return dst
}
