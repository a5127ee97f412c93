// Package classifier assigns categories to free-text transaction descriptions.
//
// Until a training sample exists the ordered keyword table decides. Once
// samples exist a multinomial naive Bayes model is fitted over all of them and
// the keyword table is no longer consulted.
package classifier

import (
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/jbrukh/bayesian"

	"spent/internal/core"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Sample is one labelled description.
type Sample struct {
	Description string
	Category    string
}

type Classifier struct {
	mu       sync.RWMutex
	keywords Keywords
	samples  []Sample
	model    *model
}

type model struct {
	nb      *bayesian.Classifier
	classes []bayesian.Class
	vocab   map[string]struct{}
	// logPrior is log(documents in class / documents), indexed like classes.
	logPrior []float64
	// uniform is set when all samples share one category.
	uniform bool
	// majority is predicted for documents with no known tokens.
	majority string
}

// New builds a classifier seeded with keywords and any persisted samples.
// A nil keyword table falls back to DefaultKeywords.
func New(keywords Keywords, samples []Sample) *Classifier {
	if keywords == nil {
		keywords = DefaultKeywords()
	}
	c := &Classifier{
		keywords: keywords.normalized(),
		samples:  append([]Sample(nil), samples...),
	}
	c.model = fit(c.samples)
	return c
}

// Categorize returns the predicted category for description.
func (c *Classifier) Categorize(description string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.model == nil {
		if cat, ok := c.keywords.Lookup(description); ok {
			return cat
		}
		return core.MiscCategory
	}
	return c.model.predict(description)
}

// Learn appends a sample and refits the model from scratch.
func (c *Classifier) Learn(description, category string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, Sample{Description: description, Category: category})
	c.model = fit(c.samples)
}

// Retrain refits from the accumulated samples. With no samples the keyword
// table stays active.
func (c *Classifier) Retrain() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = fit(c.samples)
}

func (c *Classifier) Fitted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model != nil
}

func (c *Classifier) Samples() []Sample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Sample(nil), c.samples...)
}

func tokenize(s string) []string {
	return tokenPattern.FindAllString(strings.ToLower(s), -1)
}

func fit(samples []Sample) *model {
	if len(samples) == 0 {
		return nil
	}

	m := &model{vocab: make(map[string]struct{})}
	counts := make(map[string]int)
	var order []string
	for _, s := range samples {
		if _, seen := counts[s.Category]; !seen {
			order = append(order, s.Category)
		}
		counts[s.Category]++
		for _, tok := range tokenize(s.Description) {
			m.vocab[tok] = struct{}{}
		}
	}

	m.majority = order[0]
	for _, cat := range order[1:] {
		if counts[cat] > counts[m.majority] {
			m.majority = cat
		}
	}

	if len(order) == 1 {
		m.uniform = true
		return m
	}

	m.classes = make([]bayesian.Class, len(order))
	for i, cat := range order {
		m.classes[i] = bayesian.Class(cat)
	}
	m.nb = bayesian.NewClassifier(m.classes...)
	for _, s := range samples {
		m.nb.Learn(tokenize(s.Description), bayesian.Class(s.Category))
	}
	// Add-one smoothing: every vocabulary word is seen once more per class.
	m.logPrior = make([]float64, len(m.classes))
	for i, cls := range m.classes {
		for tok := range m.vocab {
			m.nb.Observe(tok, 1, cls)
		}
		m.logPrior[i] = math.Log(float64(counts[string(cls)]) / float64(len(samples)))
	}
	return m
}

func (m *model) predict(description string) string {
	if m.uniform {
		return m.majority
	}

	var doc []string
	for _, tok := range tokenize(description) {
		if _, ok := m.vocab[tok]; ok {
			doc = append(doc, tok)
		}
	}
	if len(doc) == 0 {
		return m.majority
	}

	// LogScores weights classes by word totals; swap that prior for the
	// document-count one.
	scores, _, _ := m.nb.LogScores(doc)
	words := m.nb.WordCount()
	var total float64
	for _, n := range words {
		total += float64(n)
	}
	best, bestScore := 0, math.Inf(-1)
	for i, score := range scores {
		score += m.logPrior[i] - math.Log(float64(words[i])/total)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return string(m.classes[best])
}
