package services

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"sort"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/yungbote/therapulse-backend/internal/clients/transcribe"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
)

const (
	chartWidth  = 1000
	chartHeight = 420

	chartMarginLeft   = 70.0
	chartMarginRight  = 30.0
	chartMarginTop    = 40.0
	chartMarginBottom = 60.0
)

// emotionColors is a fixed palette so repeated renders are identical.
var emotionColors = map[string][3]float64{
	"angry":    {0.86, 0.20, 0.18},
	"disgust":  {0.42, 0.56, 0.14},
	"fear":     {0.48, 0.25, 0.60},
	"happy":    {0.96, 0.73, 0.17},
	"neutral":  {0.55, 0.57, 0.60},
	"sad":      {0.23, 0.42, 0.72},
	"surprise": {0.12, 0.68, 0.67},
}

var sentimentColors = map[string][3]float64{
	"POSITIVE": {0.23, 0.66, 0.37},
	"NEUTRAL":  {0.55, 0.57, 0.60},
	"NEGATIVE": {0.86, 0.20, 0.18},
}

// ChartService renders the analysis charts embedded into session PDFs. All
// render methods are pure functions of their inputs.
type ChartService interface {
	EmotionTimelineChart(points []EmotionPoint) image.Image
	EmotionDistributionChart(dist map[string]float64) image.Image
	SentimentDistributionChart(sentiments []transcribe.Sentiment) image.Image
	SentimentTimelineChart(sentiments []transcribe.Sentiment) image.Image
	SpeakerShareChart(utterances []transcribe.Utterance) image.Image
	EncodePNG(img image.Image) ([]byte, error)
}

type chartService struct {
	log  *logger.Logger
	face font.Face
}

func NewChartService(log *logger.Logger, fontPath string) ChartService {
	serviceLog := log.With("service", "ChartService")

	var face font.Face
	if fontPath = strings.TrimSpace(fontPath); fontPath != "" {
		loaded, err := loadFontFace(fontPath, 16)
		if err != nil {
			serviceLog.Warn("Could not load chart font, labels disabled", "error", err)
		} else {
			face = loaded
		}
	}

	return &chartService{log: serviceLog, face: face}
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font file: %w", err)
	}
	return truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		Hinting: font.HintingNone,
	}), nil
}

func (cs *chartService) newContext(title string) *gg.Context {
	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	if cs.face != nil {
		dc.SetFontFace(cs.face)
		dc.SetRGB(0.15, 0.15, 0.18)
		dc.DrawStringAnchored(title, chartWidth/2, chartMarginTop/2, 0.5, 0.5)
	}
	return dc
}

func plotArea() (x0, y0, x1, y1 float64) {
	return chartMarginLeft, chartMarginTop, chartWidth - chartMarginRight, chartHeight - chartMarginBottom
}

func (cs *chartService) drawAxes(dc *gg.Context) {
	x0, y0, x1, y1 := plotArea()
	dc.SetRGB(0.75, 0.76, 0.78)
	dc.SetLineWidth(1)
	dc.DrawLine(x0, y1, x1, y1)
	dc.DrawLine(x0, y0, x0, y1)
	dc.Stroke()
}

// EmotionTimelineChart plots classified frames as a scatter over time, one
// horizontal band per label.
func (cs *chartService) EmotionTimelineChart(points []EmotionPoint) image.Image {
	dc := cs.newContext("Facial Emotion Timeline")
	cs.drawAxes(dc)
	x0, y0, x1, y1 := plotArea()

	bandHeight := (y1 - y0) / float64(len(EmotionLabels))
	labelY := map[string]float64{}
	for i, label := range EmotionLabels {
		y := y0 + bandHeight*(float64(i)+0.5)
		labelY[label] = y
		if cs.face != nil {
			dc.SetRGB(0.35, 0.36, 0.40)
			dc.DrawStringAnchored(label, x0-8, y, 1, 0.5)
		}
		dc.SetRGBA(0.85, 0.86, 0.88, 0.6)
		dc.SetLineWidth(0.5)
		dc.DrawLine(x0, y, x1, y)
		dc.Stroke()
	}

	if len(points) > 0 {
		maxTime := points[len(points)-1].TimeSeconds
		if maxTime <= 0 {
			maxTime = 1
		}
		for _, p := range points {
			y, ok := labelY[p.Label]
			if !ok {
				continue
			}
			x := x0 + (x1-x0)*(p.TimeSeconds/maxTime)
			c := emotionColors[p.Label]
			dc.SetRGB(c[0], c[1], c[2])
			r := 3.0
			if p.FaceFound {
				r = 5.0
			}
			dc.DrawCircle(x, y, r)
			dc.Fill()
		}
	}
	return dc.Image()
}

// EmotionDistributionChart renders one bar per label in fixed label order.
func (cs *chartService) EmotionDistributionChart(dist map[string]float64) image.Image {
	dc := cs.newContext("Emotion Distribution")
	cs.drawAxes(dc)
	x0, y0, x1, y1 := plotArea()

	barSlot := (x1 - x0) / float64(len(EmotionLabels))
	barWidth := barSlot * 0.6
	for i, label := range EmotionLabels {
		share := dist[label]
		if share < 0 {
			share = 0
		}
		if share > 1 {
			share = 1
		}
		barX := x0 + barSlot*float64(i) + (barSlot-barWidth)/2
		barH := (y1 - y0) * share
		c := emotionColors[label]
		dc.SetRGB(c[0], c[1], c[2])
		dc.DrawRectangle(barX, y1-barH, barWidth, barH)
		dc.Fill()
		if cs.face != nil {
			dc.SetRGB(0.35, 0.36, 0.40)
			dc.DrawStringAnchored(label, barX+barWidth/2, y1+18, 0.5, 0.5)
			dc.DrawStringAnchored(fmt.Sprintf("%.0f%%", share*100), barX+barWidth/2, y1-barH-10, 0.5, 0.5)
		}
	}
	return dc.Image()
}

// sentimentOrder fixes bar order so repeated renders are identical.
var sentimentOrder = []string{"POSITIVE", "NEUTRAL", "NEGATIVE"}

// SentimentDistributionChart renders the share of sentiment spans per class,
// one bar per class in fixed order. Unknown classes count as neutral.
func (cs *chartService) SentimentDistributionChart(sentiments []transcribe.Sentiment) image.Image {
	dc := cs.newContext("Speech Sentiment Distribution")
	cs.drawAxes(dc)
	x0, y0, x1, y1 := plotArea()

	counts := map[string]int{}
	total := 0
	for _, s := range sentiments {
		key := strings.ToUpper(s.Sentiment)
		if _, ok := sentimentColors[key]; !ok {
			key = "NEUTRAL"
		}
		counts[key]++
		total++
	}

	barSlot := (x1 - x0) / float64(len(sentimentOrder))
	barWidth := barSlot * 0.5
	for i, key := range sentimentOrder {
		share := 0.0
		if total > 0 {
			share = float64(counts[key]) / float64(total)
		}
		barX := x0 + barSlot*float64(i) + (barSlot-barWidth)/2
		barH := (y1 - y0) * share
		c := sentimentColors[key]
		dc.SetRGB(c[0], c[1], c[2])
		dc.DrawRectangle(barX, y1-barH, barWidth, barH)
		dc.Fill()
		if cs.face != nil {
			dc.SetRGB(0.35, 0.36, 0.40)
			dc.DrawStringAnchored(strings.ToLower(key), barX+barWidth/2, y1+18, 0.5, 0.5)
			dc.DrawStringAnchored(fmt.Sprintf("%.0f%%", share*100), barX+barWidth/2, y1-barH-10, 0.5, 0.5)
		}
	}
	return dc.Image()
}

// SentimentTimelineChart draws utterance sentiment spans as colored bars along
// the session clock.
func (cs *chartService) SentimentTimelineChart(sentiments []transcribe.Sentiment) image.Image {
	dc := cs.newContext("Speech Sentiment Timeline")
	cs.drawAxes(dc)
	x0, y0, x1, y1 := plotArea()

	midY := (y0 + y1) / 2
	dc.SetRGBA(0.6, 0.6, 0.62, 0.8)
	dc.SetLineWidth(1)
	dc.DrawLine(x0, midY, x1, midY)
	dc.Stroke()

	if len(sentiments) > 0 {
		maxEnd := 1
		for _, s := range sentiments {
			if s.EndMS > maxEnd {
				maxEnd = s.EndMS
			}
		}
		halfBand := (y1 - y0) / 2
		for _, s := range sentiments {
			startX := x0 + (x1-x0)*float64(s.StartMS)/float64(maxEnd)
			endX := x0 + (x1-x0)*float64(s.EndMS)/float64(maxEnd)
			if endX-startX < 2 {
				endX = startX + 2
			}
			key := strings.ToUpper(s.Sentiment)
			c, ok := sentimentColors[key]
			if !ok {
				c = sentimentColors["NEUTRAL"]
			}
			height := halfBand * s.Confidence
			if height < 4 {
				height = 4
			}
			dc.SetRGB(c[0], c[1], c[2])
			switch key {
			case "POSITIVE":
				dc.DrawRectangle(startX, midY-height, endX-startX, height)
			case "NEGATIVE":
				dc.DrawRectangle(startX, midY, endX-startX, height)
			default:
				dc.DrawRectangle(startX, midY-2, endX-startX, 4)
			}
			dc.Fill()
		}
	}
	return dc.Image()
}

// SpeakerShareChart renders talk-time share per diarized speaker.
func (cs *chartService) SpeakerShareChart(utterances []transcribe.Utterance) image.Image {
	dc := cs.newContext("Speaker Talk Time")
	cs.drawAxes(dc)
	x0, y0, x1, y1 := plotArea()

	totals := map[string]int{}
	for _, u := range utterances {
		totals[u.Speaker] += u.EndMS - u.StartMS
	}
	speakers := make([]string, 0, len(totals))
	grand := 0
	for s, ms := range totals {
		speakers = append(speakers, s)
		grand += ms
	}
	sort.Strings(speakers)
	if grand == 0 || len(speakers) == 0 {
		return dc.Image()
	}

	palette := [][3]float64{
		{0.23, 0.42, 0.72},
		{0.96, 0.73, 0.17},
		{0.23, 0.66, 0.37},
		{0.86, 0.20, 0.18},
		{0.48, 0.25, 0.60},
	}

	barSlot := (y1 - y0) / float64(len(speakers))
	barHeight := barSlot * 0.55
	for i, speaker := range speakers {
		share := float64(totals[speaker]) / float64(grand)
		barY := y0 + barSlot*float64(i) + (barSlot-barHeight)/2
		barW := (x1 - x0) * share
		c := palette[i%len(palette)]
		dc.SetRGB(c[0], c[1], c[2])
		dc.DrawRectangle(x0, barY, barW, barHeight)
		dc.Fill()
		if cs.face != nil {
			dc.SetRGB(0.35, 0.36, 0.40)
			dc.DrawStringAnchored("Speaker "+speaker, x0-8, barY+barHeight/2, 1, 0.5)
			dc.DrawStringAnchored(fmt.Sprintf("%.0f%%", share*100), x0+barW+8, barY+barHeight/2, 0, 0.5)
		}
	}
	return dc.Image()
}

func (cs *chartService) EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode chart png: %w", err)
	}
	return buf.Bytes(), nil
}
