package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
)

const (
	whitespaceLuma   = 240
	edgeThreshold    = 100.0
	colorsForMaxDiv  = 1000.0
	complexityHigh   = 0.7
	complexityMedium = 0.4
)

// VisualMetrics summarizes a screenshot.
type VisualMetrics struct {
	Width                 int     `json:"width"`
	Height                int     `json:"height"`
	AspectRatio           float64 `json:"aspect_ratio"`
	UniqueColors          int     `json:"unique_colors"`
	ColorDiversity        float64 `json:"color_diversity"`
	EdgeDensity           float64 `json:"edge_density"`
	WhitespaceRatio       float64 `json:"whitespace_ratio"`
	ContentDensity        string  `json:"content_density"`
	LayoutBalance         float64 `json:"layout_balance"`
	ComplexityScore       float64 `json:"complexity_score"`
	ComplexityLevel       string  `json:"complexity_level"`
	WellBalanced          bool    `json:"well_balanced"`
	GoodWhitespace        bool    `json:"good_whitespace"`
	AppropriateComplexity bool    `json:"appropriate_complexity"`
}

// ComputeMetrics decodes a PNG and measures color use, edge density,
// whitespace and how evenly the content is distributed.
func ComputeMetrics(pngData []byte) (*VisualMetrics, error) {
	img, err := png.Decode(bytes.NewReader(pngData))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return metricsFor(img), nil
}

func metricsFor(img image.Image) *VisualMetrics {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	m := &VisualMetrics{Width: w, Height: h}
	if w == 0 || h == 0 {
		m.ContentDensity = "sparse"
		m.ComplexityLevel = "low"
		m.LayoutBalance = 0.5
		return m
	}
	m.AspectRatio = round(float64(w)/float64(h), 2)

	gray := make([]float64, w*h)
	colors := make(map[uint32]struct{})
	var white int
	var m00, m10, m01 float64

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			colors[uint32(c.R)<<16|uint32(c.G)<<8|uint32(c.B)] = struct{}{}

			l := float64(color.GrayModel.Convert(c).(color.Gray).Y)
			gray[y*w+x] = l
			if l > whitespaceLuma {
				white++
			}
			m00 += l
			m10 += float64(x) * l
			m01 += float64(y) * l
		}
	}

	total := float64(w * h)
	m.UniqueColors = len(colors)
	m.ColorDiversity = round(math.Min(float64(m.UniqueColors)/colorsForMaxDiv, 1), 3)
	m.EdgeDensity = round(float64(countEdges(gray, w, h))/total, 3)
	m.WhitespaceRatio = round(float64(white)/total, 3)

	m.LayoutBalance = 0.5
	if m00 > 0 {
		halfW, halfH := float64(w)/2, float64(h)/2
		bx := math.Abs(m10/m00-halfW) / halfW
		by := math.Abs(m01/m00-halfH) / halfH
		m.LayoutBalance = round(1-(bx+by)/2, 3)
	}

	content := 1 - m.WhitespaceRatio
	switch {
	case content > 0.8:
		m.ContentDensity = "dense"
	case content > 0.5:
		m.ContentDensity = "moderate"
	default:
		m.ContentDensity = "sparse"
	}

	m.ComplexityScore = round(m.EdgeDensity*0.4+m.ColorDiversity*0.3+content*0.3, 3)
	switch {
	case m.ComplexityScore > complexityHigh:
		m.ComplexityLevel = "high"
	case m.ComplexityScore > complexityMedium:
		m.ComplexityLevel = "medium"
	default:
		m.ComplexityLevel = "low"
	}

	m.WellBalanced = m.LayoutBalance > 0.7
	m.GoodWhitespace = m.WhitespaceRatio > 0.2 && m.WhitespaceRatio < 0.6
	m.AppropriateComplexity = m.ComplexityScore > 0.3 && m.ComplexityScore < 0.8
	return m
}

// countEdges counts pixels whose Sobel gradient magnitude exceeds edgeThreshold.
// Border pixels are never edges.
func countEdges(gray []float64, w, h int) int {
	if w < 3 || h < 3 {
		return 0
	}
	at := func(x, y int) float64 { return gray[y*w+x] }
	n := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1) +
				at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			if math.Hypot(gx, gy) > edgeThreshold {
				n++
			}
		}
	}
	return n
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
