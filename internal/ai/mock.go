package ai

import (
	"context"
	"encoding/json"
	"hash/fnv"

	"github.com/ticket-tagger/backend/internal/models"
)

// MockClassifier answers offline with three distinct categories chosen by
// hashing the prompt, so the same prompt always gets the same tags.
type MockClassifier struct {
	Categories []models.Category
}

func (m MockClassifier) Classify(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &TransportError{Err: err}
	}
	categories := m.Categories
	if len(categories) == 0 {
		categories = models.Categories
	}

	h := promptHash(prompt)
	n := len(categories)
	picked := make([]models.Category, 0, 3)
	seen := map[int]bool{}
	for _, div := range []uint64{1, 7, 13, 17, 19} {
		if len(picked) == 3 || len(picked) == n {
			break
		}
		idx := int((h / div) % uint64(n))
		for seen[idx] {
			idx = (idx + 1) % n
		}
		seen[idx] = true
		picked = append(picked, categories[idx])
	}

	b, err := json.Marshal(picked)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func promptHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
