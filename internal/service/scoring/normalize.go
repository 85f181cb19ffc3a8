package scoring

import (
	"math"
	"regexp"
	"strings"
)

var (
	nonWordRe    = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Normalize приводит промпт к виду для сравнения: нижний регистр,
// всё кроме латиницы, цифр и пробелов заменяется пробелом, пробелы схлопываются.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = nonWordRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Cosine возвращает косинусное сходство двух векторов.
// Векторы разной длины сравниваются по общей части.
func Cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	for _, v := range a {
		normA += v * v
	}
	for _, v := range b {
		normB += v * v
	}
	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + 1e-8)
}

// ToScore переводит косинусное сходство в балл 0..100 с точностью до сотых
func ToScore(cos float64) float64 {
	if math.IsNaN(cos) || cos < 0 {
		cos = 0
	}
	if cos > 1 {
		cos = 1
	}
	return math.Round(cos*100*100) / 100
}
