package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/yungbote/csvshare-backend/internal/platform/apierr"
	"github.com/yungbote/csvshare-backend/internal/platform/cache"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
)

const (
	chartWidth   = 960
	chartHeight  = 540
	chartMargin  = 64.0
	chartMaxBars = 50
	// A column is numeric when this share of its non-empty values parse as numbers.
	numericThreshold = 0.8
)

type ChartService interface {
	// Render draws a bar chart of yCol against xCol. Empty column names pick
	// the first column for x and the first numeric column for y.
	Render(ctx context.Context, id uint, xCol, yCol string) ([]byte, error)
}

type chartService struct {
	log      *logger.Logger
	csv      CSVService
	fontFace font.Face
}

// NewChartService uses the TrueType font at fontPath when set and the built-in
// bitmap face otherwise.
func NewChartService(log *logger.Logger, csv CSVService, fontPath string) (ChartService, error) {
	serviceLog := log.With("service", "ChartService")
	cs := &chartService{log: serviceLog, csv: csv}
	if strings.TrimSpace(fontPath) != "" {
		serviceLog.Info("Loading chart font", "font", fontPath)
		face, err := loadFontFace(fontPath, 14)
		if err != nil {
			return nil, fmt.Errorf("could not load chart font: %w", err)
		}
		cs.fontFace = face
	}
	return cs, nil
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		Hinting: font.HintingNone,
	}), nil
}

func (s *chartService) Render(ctx context.Context, id uint, xCol, yCol string) ([]byte, error) {
	content, err := s.csv.Content(ctx, id)
	if err != nil {
		return nil, err
	}
	xCol, yCol, err = ResolveChartColumns(content, xCol, yCol)
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, chartMaxBars)
	values := make([]float64, 0, chartMaxBars)
	for _, row := range content.Data {
		if len(values) == chartMaxBars {
			break
		}
		v, ok := parseNumber(row[yCol])
		if !ok {
			continue
		}
		labels = append(labels, row[xCol])
		values = append(values, v)
	}
	return s.draw(fmt.Sprintf("%s by %s", yCol, xCol), labels, values)
}

// ResolveChartColumns validates the requested axes and fills in defaults.
func ResolveChartColumns(content *cache.CSVContent, xCol, yCol string) (string, string, error) {
	if content == nil || len(content.Columns) == 0 {
		return "", "", apierr.New(http.StatusBadRequest, "no_columns", errors.New("CSV file has no columns"))
	}
	has := func(col string) bool {
		for _, c := range content.Columns {
			if c == col {
				return true
			}
		}
		return false
	}

	if xCol == "" {
		xCol = content.Columns[0]
	} else if !has(xCol) {
		return "", "", apierr.New(http.StatusBadRequest, "unknown_column", fmt.Errorf("unknown column %q", xCol))
	}

	if yCol == "" {
		for _, col := range NumericColumns(content) {
			if col != xCol || len(content.Columns) == 1 {
				yCol = col
				break
			}
		}
		if yCol == "" {
			return "", "", apierr.New(http.StatusBadRequest, "no_numeric_column", errors.New("CSV file has no numeric column to chart"))
		}
		return xCol, yCol, nil
	}
	if !has(yCol) {
		return "", "", apierr.New(http.StatusBadRequest, "unknown_column", fmt.Errorf("unknown column %q", yCol))
	}
	if !IsNumericColumn(content, yCol) {
		return "", "", apierr.New(http.StatusBadRequest, "non_numeric_column", fmt.Errorf("column %q is not numeric", yCol))
	}
	return xCol, yCol, nil
}

func NumericColumns(content *cache.CSVContent) []string {
	var out []string
	for _, col := range content.Columns {
		if IsNumericColumn(content, col) {
			out = append(out, col)
		}
	}
	return out
}

func IsNumericColumn(content *cache.CSVContent, col string) bool {
	var nonEmpty, numeric int
	for _, row := range content.Data {
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		nonEmpty++
		if _, ok := parseNumber(v); ok {
			numeric++
		}
	}
	return nonEmpty > 0 && float64(numeric)/float64(nonEmpty) >= numericThreshold
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (s *chartService) draw(title string, labels []string, values []float64) ([]byte, error) {
	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetColor(color.White)
	dc.Clear()
	if s.fontFace != nil {
		dc.SetFontFace(s.fontFace)
	}

	left, right := chartMargin, float64(chartWidth)-chartMargin/2
	top, bottom := chartMargin, float64(chartHeight)-chartMargin

	dc.SetColor(color.Black)
	dc.DrawStringAnchored(title, float64(chartWidth)/2, chartMargin/2, 0.5, 0.5)

	minV, maxV := 0.0, 0.0
	for _, v := range values {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	if maxV == minV {
		maxV = minV + 1
	}
	scale := (bottom - top) / (maxV - minV)
	zeroY := bottom + minV*scale

	dc.SetLineWidth(1)
	dc.SetRGB(0.3, 0.3, 0.3)
	dc.DrawLine(left, top, left, bottom)
	dc.DrawLine(left, zeroY, right, zeroY)
	dc.Stroke()
	dc.DrawStringAnchored(formatTick(maxV), left-6, top, 1, 0.5)
	dc.DrawStringAnchored(formatTick(minV), left-6, bottom, 1, 0.5)

	if len(values) == 0 {
		dc.DrawStringAnchored("no numeric rows", float64(chartWidth)/2, float64(chartHeight)/2, 0.5, 0.5)
	} else {
		slot := (right - left) / float64(len(values))
		barW := math.Max(1, slot*0.7)
		labelEvery := int(math.Ceil(float64(len(values)) / 12))
		for i, v := range values {
			x := left + float64(i)*slot + (slot-barW)/2
			y := zeroY - v*scale
			h := zeroY - y
			if h < 0 {
				y, h = zeroY, -h
			}
			dc.SetRGB255(59, 130, 246)
			dc.DrawRectangle(x, y, barW, h)
			dc.Fill()
			if i%labelEvery == 0 {
				dc.SetColor(color.Black)
				dc.DrawStringAnchored(truncateLabel(labels[i], 12), x+barW/2, bottom+14, 0.5, 0.5)
			}
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTick(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func truncateLabel(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-2]) + ".."
}
