// Package vision simulates a product recognizer. There is no image model
// behind it: candidates are pseudo-random draws over the catalog with
// plausible confidence scores and bounding boxes, which is enough to drive
// the cart's vision-recognition path end to end. The wire shape matches
// what a real recognizer would return, so swapping one in later only
// replaces this package's internals.
package vision

import (
	"context"
	"fmt"
	"math/rand/v2"

	"till/internal/catalog/models"
	dErrors "till/pkg/domain-errors"
)

// Catalog lists the products candidates are drawn from.
type Catalog interface {
	List(ctx context.Context) ([]*models.Product, error)
}

// BoundingBox locates a candidate in the (simulated) camera frame, in
// pixels.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Candidate is one recognition hypothesis.
type Candidate struct {
	ProductID  string      `json:"product_id"`
	Name       string      `json:"name"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"bounding_box"`
}

const (
	frameWidth  = 1280
	frameHeight = 720

	maxCandidates = 3
)

// Recognizer produces simulated candidates.
type Recognizer struct {
	catalog Catalog
	rng     *rand.Rand
}

type Option func(*Recognizer)

// WithSeed pins the random stream for deterministic tests.
func WithSeed(seed uint64) Option {
	return func(r *Recognizer) { r.rng = rand.New(rand.NewPCG(seed, seed)) }
}

func New(catalog Catalog, opts ...Option) (*Recognizer, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	r := &Recognizer{
		catalog: catalog,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Recognize returns up to three distinct candidates, best first. The top
// candidate gets a high confidence; alternatives trail off, mimicking the
// score distribution of a real classifier.
func (r *Recognizer) Recognize(ctx context.Context) ([]Candidate, error) {
	products, err := r.catalog.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list products")
	}
	if len(products) == 0 {
		return nil, dErrors.New(dErrors.CodeConflict, "catalog is empty, nothing to recognize")
	}

	count := min(maxCandidates, len(products))
	picks := r.rng.Perm(len(products))[:count]

	candidates := make([]Candidate, count)
	confidence := 0.70 + r.rng.Float64()*0.29
	for i, pick := range picks {
		product := products[pick]
		candidates[i] = Candidate{
			ProductID:  product.ID.String(),
			Name:       product.Name,
			Confidence: confidence,
			Box:        r.randomBox(),
		}
		// Each alternative scores noticeably below the previous one.
		confidence *= 0.4 + r.rng.Float64()*0.3
	}
	return candidates, nil
}

func (r *Recognizer) randomBox() BoundingBox {
	width := 80 + r.rng.IntN(frameWidth/3)
	height := 80 + r.rng.IntN(frameHeight/3)
	return BoundingBox{
		X:      r.rng.IntN(frameWidth - width),
		Y:      r.rng.IntN(frameHeight - height),
		Width:  width,
		Height: height,
	}
}
