// Package diagnosis ranks question types by weighted error rate and picks a
// weakness to work on and a strength to build on.
package diagnosis

import (
	"math"
	"slices"
	"strings"

	"github.com/pavelanni/wrongnote/internal/model"
	"github.com/pavelanni/wrongnote/internal/sheet"
)

// Guidance categories.
const (
	Inference     = "inference"
	MainIdea      = "main_idea"
	Understanding = "understanding"
	Critique      = "critique"
	Application   = "application"
	Detail        = "detail"
	Vocabulary    = "vocabulary"
	Structure     = "structure"

	// Generic is used when a weakness has no dedicated guidance.
	Generic = "reading"
	// DefaultStrategy is used when a strength has no dedicated strategy.
	DefaultStrategy = "default"
)

// Guidance is the text shown for a weakness category.
type Guidance struct {
	Causes []string
	Pre    string
	During string
	Post   string
}

// Guide supplies localized guidance text.
type Guide interface {
	Guidance(category string) (Guidance, bool)
	Strategy(category string) (string, bool)
	// OverallLabel names the strength when no category stands out.
	OverallLabel() string
}

type alias struct {
	label    string
	category string
}

// aliases maps normalized type labels to categories, longest label first so that
// partial matching prefers the most specific label.
var aliases = func() []alias {
	a := []alias{
		{"추론", Inference}, {"inference", Inference},
		{"중심생각", MainIdea}, {"주제", MainIdea}, {"mainidea", MainIdea},
		{"작품이해", Understanding}, {"understanding", Understanding},
		{"비판", Critique}, {"critique", Critique},
		{"적용", Application}, {"application", Application},
		{"세부내용", Detail}, {"세부정보", Detail}, {"detail", Detail}, {"details", Detail},
		{"어휘", Vocabulary}, {"vocabulary", Vocabulary}, {"vocab", Vocabulary},
		{"구조", Structure}, {"structure", Structure},
	}
	slices.SortStableFunc(a, func(x, y alias) int { return len(y.label) - len(x.label) })
	return a
}()

var weights = map[string]float64{
	Inference:     1.2,
	MainIdea:      1.2,
	Understanding: 1.2,
	Critique:      1.2,
	Application:   1.2,
	Detail:        1.1,
	Vocabulary:    1.1,
	Structure:     1.0,
}

// Category maps a type label to its guidance category by exact normalized match.
func Category(name string) (string, bool) {
	n := sheet.NormalizeLabel(name)
	for _, a := range aliases {
		if n == a.label {
			return a.category, true
		}
	}
	return "", false
}

// matchCategory is like Category but also accepts labels that contain an alias,
// such as "추론적 이해".
func matchCategory(name string) (string, bool) {
	if c, ok := Category(name); ok {
		return c, true
	}
	n := sheet.NormalizeLabel(name)
	for _, a := range aliases {
		if strings.Contains(n, a.label) {
			return a.category, true
		}
	}
	return "", false
}

// ImpactWeight returns how much errors in a question type count. Unknown types
// weigh 1.0.
func ImpactWeight(name string) float64 {
	if c, ok := Category(name); ok {
		return weights[c]
	}
	return 1.0
}

// Diagnose picks the weakness with the highest (100 - accuracy) * weight among the
// type buckets, or among the area buckets when there are no type buckets, and the
// strength with the highest accuracy among the remaining buckets. It returns nil
// when there is nothing to diagnose.
func Diagnose(byType, byArea []model.MetricBucket, guide Guide) *model.DiagnosisResult {
	candidates := byType
	if len(candidates) == 0 {
		candidates = byArea
	}
	if len(candidates) == 0 {
		return nil
	}

	weak, weakScore := -1, math.Inf(-1)
	for i, b := range candidates {
		if score := (100 - b.Accuracy) * ImpactWeight(b.Name); score > weakScore {
			weak, weakScore = i, score
		}
	}
	w := candidates[weak]

	g, ok := Guidance{}, false
	if c, found := Category(w.Name); found {
		g, ok = guide.Guidance(c)
	}
	if !ok {
		g, _ = guide.Guidance(Generic)
	}

	return &model.DiagnosisResult{
		Weakness: model.Weakness{
			Name:         w.Name,
			Score:        math.Round(weakScore*10) / 10,
			ImpactFactor: ImpactWeight(w.Name),
		},
		Causes: g.Causes,
		Prescription: model.Prescription{
			Pre:    g.Pre,
			During: g.During,
			Post:   g.Post,
		},
		Strength: strength(byType, byArea, w.Name, guide),
	}
}

func strength(byType, byArea []model.MetricBucket, weakness string, guide Guide) model.Strength {
	name := ""
	best := math.Inf(-1)
	for _, b := range slices.Concat(byType, byArea) {
		if b.Name == weakness || b.Total <= 0 {
			continue
		}
		if b.Accuracy > best {
			name, best = b.Name, b.Accuracy
		}
	}
	if name == "" {
		name = guide.OverallLabel()
	}

	strategy, ok := "", false
	if c, found := matchCategory(name); found {
		strategy, ok = guide.Strategy(c)
	}
	if !ok {
		strategy, _ = guide.Strategy(DefaultStrategy)
	}
	return model.Strength{Name: name, Strategy: strategy}
}
