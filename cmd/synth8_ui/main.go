package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	synth8 "github.com/cbegin/synth8-go"
	"github.com/cbegin/synth8-go/internal/analysis"
	"github.com/cbegin/synth8-go/internal/config"
	"github.com/cbegin/synth8-go/internal/keys"
)

const (
	windowW    = 1000
	windowH    = 600
	minWindowW = 640
	minWindowH = 420

	textScale = 2
	charW     = 7 * textScale
	lineH     = 14 * textScale

	fftSize    = 2048
	ringBufLen = 16384
)

var (
	bgColor       = color.RGBA{192, 192, 192, 255}
	panelColor    = color.RGBA{192, 192, 192, 255}
	borderColor   = color.RGBA{128, 128, 128, 255}
	bevelLight    = color.RGBA{255, 255, 255, 255}
	bevelDarker   = color.RGBA{64, 64, 64, 255}
	sunkenBgColor = color.RGBA{24, 24, 32, 255}
	keyDownColor  = color.RGBA{0, 0, 128, 255}
)

type game struct {
	engine *synth8.Engine
	ring   *analysis.Ring
	layout keys.Layout
	order  []string

	held     map[string]bool
	mouseKey string

	scopeImg *ebiten.Image
	specBins []float64
	wavePeak float64

	status string

	textCache map[string]*ebiten.Image
	viewW     int
	viewH     int
}

func newGame(cfg *config.Config) (*game, error) {
	ring := analysis.NewRing(ringBufLen)
	opts, err := cfg.EngineOptions(synth8.WithSampleTap(ring.Tap), synth8.WithLogger(log.Default()))
	if err != nil {
		return nil, err
	}
	e, err := synth8.New(opts...)
	if err != nil {
		return nil, err
	}
	if err := cfg.Install(e); err != nil {
		return nil, err
	}
	if err := e.Play(); err != nil {
		return nil, err
	}
	layout := cfg.KeyLayout()
	return &game{
		engine:    e,
		ring:      ring,
		layout:    layout,
		order:     layout.Keys(),
		held:      make(map[string]bool),
		status:    "Play with the keyboard or click a key",
		textCache: make(map[string]*ebiten.Image, 256),
		viewW:     windowW,
		viewH:     windowH,
	}, nil
}

func (g *game) Close() { _ = g.engine.Stop() }

func (g *game) Update() error {
	for _, k := range inpututil.AppendJustPressedKeys(nil) {
		g.press(keyName(k))
	}
	for _, k := range inpututil.AppendJustReleasedKeys(nil) {
		g.release(keyName(k))
	}
	g.handleMouse()
	return nil
}

func (g *game) press(k string) {
	if _, ok := g.layout[k]; !ok {
		return
	}
	g.held[k] = true
	g.engine.HandleKey(keys.Press(k))
	g.status = fmt.Sprintf("%s  %.2f Hz", strings.ToUpper(k), g.layout[k])
}

func (g *game) release(k string) {
	if !g.held[k] {
		return
	}
	delete(g.held, k)
	g.engine.HandleKey(keys.Release(k))
}

func (g *game) handleMouse() {
	mx, my := ebiten.CursorPosition()
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		for i, r := range g.keyRects() {
			if image.Pt(mx, my).In(r) {
				g.mouseKey = g.order[i]
				g.press(g.mouseKey)
				break
			}
		}
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) && g.mouseKey != "" {
		g.release(g.mouseKey)
		g.mouseKey = ""
	}
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	g.viewW = max(outsideW, minWindowW)
	g.viewH = max(outsideH, minWindowH)
	return g.viewW, g.viewH
}

func (g *game) spectrumRect() image.Rectangle {
	return image.Rect(8, 8, g.viewW-8, g.viewH*55/100)
}

func (g *game) keyboardRect() image.Rectangle {
	s := g.spectrumRect()
	return image.Rect(8, s.Max.Y+8, g.viewW-8, g.viewH-lineH-24)
}

func (g *game) statusRect() image.Rectangle {
	return image.Rect(8, g.viewH-lineH-16, g.viewW-8, g.viewH-8)
}

func (g *game) keyRects() []image.Rectangle {
	r := g.keyboardRect().Inset(8)
	n := len(g.order)
	if n == 0 {
		return nil
	}
	w := r.Dx() / n
	rects := make([]image.Rectangle, n)
	for i := range rects {
		x := r.Min.X + i*w
		rects[i] = image.Rect(x, r.Min.Y, x+w-4, r.Max.Y)
	}
	return rects
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	g.drawDarkPanel(screen, g.spectrumRect())
	g.drawSpectrum(screen, g.spectrumRect())
	g.drawPanel(screen, g.keyboardRect())
	g.drawKeyboard(screen)
	g.drawSunkenPanel(screen, g.statusRect())
	g.drawStatus(screen, g.statusRect())
}

func (g *game) drawKeyboard(screen *ebiten.Image) {
	for i, r := range g.keyRects() {
		k := g.order[i]
		if g.held[k] {
			fillRect(screen, r, keyDownColor)
			drawSunkenBorder(screen, r)
		} else {
			fillRect(screen, r, panelColor)
			drawBorder(screen, r)
		}
		label := strings.ToUpper(k)
		g.drawText(screen, label, r.Min.X+(r.Dx()-charW)/2, r.Max.Y-lineH-8)
	}
}

func (g *game) drawSpectrum(screen *ebiten.Image, rect image.Rectangle) {
	inner := rect.Inset(8)
	width, height := inner.Dx(), inner.Dy()
	if width <= 0 || height <= 0 {
		return
	}
	if g.scopeImg == nil || g.scopeImg.Bounds().Dx() != width || g.scopeImg.Bounds().Dy() != height {
		g.scopeImg = ebiten.NewImage(width, height)
	}
	g.scopeImg.Fill(color.RGBA{14, 16, 22, 255})

	snap := g.ring.Snapshot(fftSize)

	waveH := int(float64(height) * 0.45)
	g.drawWaveform(g.scopeImg, snap, width, waveH)
	vector.DrawFilledRect(g.scopeImg, 0, float32(waveH), float32(width), 1, color.RGBA{50, 54, 68, 180}, false)
	specY := waveH + 1
	g.drawSpectrumBars(g.scopeImg, snap, width, height-specY, specY)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(inner.Min.X), float64(inner.Min.Y))
	screen.DrawImage(g.scopeImg, op)
}

func (g *game) drawWaveform(dst *ebiten.Image, samples []float32, width int, height int) {
	if len(samples) < 2 || width < 2 || height < 4 {
		return
	}
	midY := height / 2
	vector.DrawFilledRect(dst, 0, float32(midY), float32(width), 1, color.RGBA{40, 44, 58, 100}, false)

	// Auto-gain: fast attack, slow release.
	target := max(float64(analysis.Peak(samples)), 0.01)
	if target > g.wavePeak {
		g.wavePeak = g.wavePeak*0.3 + target*0.7
	} else {
		g.wavePeak = g.wavePeak*0.995 + target*0.005
	}
	g.wavePeak = max(g.wavePeak, 0.01)
	gain := float64(midY-2) / g.wavePeak

	trigger := analysis.FindZeroCrossing(samples, len(samples)/4)
	visible := max(len(samples)-trigger, 2)
	waveColor := color.RGBA{80, 200, 255, 220}
	prevX, prevY := 0, midY-int(float64(samples[trigger])*gain)
	for px := 1; px < width; px++ {
		si := min(trigger+px*visible/width, len(samples)-1)
		y := midY - int(float64(samples[si])*gain)
		vector.StrokeLine(dst, float32(prevX), float32(prevY), float32(px), float32(y), 1, waveColor, true)
		prevX, prevY = px, y
	}
}

func (g *game) drawSpectrumBars(dst *ebiten.Image, samples []float32, width int, height int, yOffset int) {
	if width < 4 || height < 4 {
		return
	}
	mags, err := analysis.Spectrum(samples, fftSize)
	if err != nil {
		return
	}
	numBars := min(max(width/3, 16), 256)
	if len(g.specBins) != numBars {
		g.specBins = make([]float64, numBars)
	}
	bands := analysis.LogBands(mags, g.engine.SampleRate(), numBars, 18000)
	for i, norm := range bands {
		prev := g.specBins[i]
		if norm > prev {
			g.specBins[i] = prev*0.3 + norm*0.7
		} else {
			g.specBins[i] = prev*0.85 + norm*0.15
		}
	}

	barW := float32(width) / float32(numBars)
	for i, v := range g.specBins {
		barH := max(float32(v)*float32(height-4), 1)
		x := float32(i) * barW
		y := float32(yOffset) + float32(height-2) - barH
		r, gr, b := spectrumColor(v)
		vector.DrawFilledRect(dst, x+1, y, barW-1, barH, color.RGBA{r, gr, b, 220}, false)
	}
}

// spectrumColor runs blue, green, then orange-red as v rises.
func spectrumColor(v float64) (uint8, uint8, uint8) {
	if v < 0.33 {
		t := v / 0.33
		return uint8(30 + 20*t), uint8(80 + 120*t), uint8(200 + 55*t)
	}
	if v < 0.66 {
		t := (v - 0.33) / 0.33
		return uint8(50 + 140*t), uint8(200 + 30*t), uint8(255 - 100*t)
	}
	t := (v - 0.66) / 0.34
	return uint8(190 + 65*t), uint8(230 - 100*t), uint8(155 - 100*t)
}

func (g *game) drawStatus(screen *ebiten.Image, rect image.Rectangle) {
	msg := "Status: " + g.status
	maxChars := max(8, (rect.Dx()-16)/charW)
	if r := []rune(msg); len(r) > maxChars {
		msg = string(r[:maxChars-3]) + "..."
	}
	g.drawText(screen, msg, rect.Min.X+8, rect.Min.Y+6)
}

func (g *game) drawPanel(screen *ebiten.Image, rect image.Rectangle) {
	fillRect(screen, rect, panelColor)
	drawBorder(screen, rect)
}

func (g *game) drawSunkenPanel(screen *ebiten.Image, rect image.Rectangle) {
	fillRect(screen, rect, sunkenBgColor)
	drawSunkenBorder(screen, rect)
}

func (g *game) drawDarkPanel(screen *ebiten.Image, rect image.Rectangle) {
	fillRect(screen, rect, color.RGBA{0, 0, 0, 255})
	drawSunkenBorder(screen, rect)
}

func fillRect(dst *ebiten.Image, r image.Rectangle, c color.Color) {
	vector.DrawFilledRect(dst, float32(r.Min.X), float32(r.Min.Y), float32(r.Dx()), float32(r.Dy()), c, false)
}

// drawBorder draws a raised bevel: highlight top and left, shadow bottom and right.
func drawBorder(screen *ebiten.Image, rect image.Rectangle) {
	x, y := float32(rect.Min.X), float32(rect.Min.Y)
	w, h := float32(rect.Dx()), float32(rect.Dy())
	vector.DrawFilledRect(screen, x, y, w-1, 1, bevelLight, false)
	vector.DrawFilledRect(screen, x, y+1, 1, h-2, bevelLight, false)
	vector.DrawFilledRect(screen, x, y+h-1, w, 1, bevelDarker, false)
	vector.DrawFilledRect(screen, x+w-1, y, 1, h, bevelDarker, false)
	vector.DrawFilledRect(screen, x+1, y+h-2, w-3, 1, borderColor, false)
	vector.DrawFilledRect(screen, x+w-2, y+1, 1, h-3, borderColor, false)
}

func drawSunkenBorder(screen *ebiten.Image, rect image.Rectangle) {
	x, y := float32(rect.Min.X), float32(rect.Min.Y)
	w, h := float32(rect.Dx()), float32(rect.Dy())
	vector.DrawFilledRect(screen, x, y, w-1, 1, borderColor, false)
	vector.DrawFilledRect(screen, x, y+1, 1, h-2, borderColor, false)
	vector.DrawFilledRect(screen, x, y+h-1, w, 1, bevelLight, false)
	vector.DrawFilledRect(screen, x+w-1, y, 1, h, bevelLight, false)
	vector.DrawFilledRect(screen, x+1, y+1, w-3, 1, bevelDarker, false)
	vector.DrawFilledRect(screen, x+1, y+2, 1, h-4, bevelDarker, false)
}

func (g *game) drawText(screen *ebiten.Image, msg string, x int, y int) {
	if msg == "" {
		return
	}
	img := g.textCache[msg]
	if img == nil {
		img = ebiten.NewImage(max(1, len([]rune(msg))*7), 14)
		ebitenutil.DebugPrintAt(img, msg, 0, 0)
		if len(g.textCache) > 1000 {
			g.textCache = make(map[string]*ebiten.Image, 256)
		}
		g.textCache[msg] = img
	}
	opS := &ebiten.DrawImageOptions{}
	opS.GeoM.Scale(textScale, textScale)
	opS.GeoM.Translate(float64(x+2), float64(y+2))
	opS.ColorScale.Scale(0, 0, 0, 1)
	screen.DrawImage(img, opS)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(textScale, textScale)
	op.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(img, op)
}

// keyName maps an ebiten key to the character a layout uses for it.
func keyName(k ebiten.Key) string {
	name := k.String()
	if len(name) == 1 {
		return strings.ToLower(name)
	}
	if d, ok := strings.CutPrefix(name, "Digit"); ok {
		return d
	}
	switch k {
	case ebiten.KeyComma:
		return ","
	case ebiten.KeyPeriod:
		return "."
	case ebiten.KeySlash:
		return "/"
	case ebiten.KeySemicolon:
		return ";"
	case ebiten.KeyQuote:
		return "'"
	case ebiten.KeyBracketLeft:
		return "["
	case ebiten.KeyBracketRight:
		return "]"
	case ebiten.KeyMinus:
		return "-"
	case ebiten.KeyEqual:
		return "="
	case ebiten.KeySpace:
		return " "
	}
	return ""
}

func main() {
	configPath := flag.String("config", "", "path to a YAML session file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatal(err)
		}
	}
	g, err := newGame(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("synth8 keyboard")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
