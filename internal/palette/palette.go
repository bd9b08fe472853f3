// Package palette extracts a small dominant-color palette from an image
// via k-means clustering over sampled pixels (SPEC_FULL.md's domain-stack
// wiring of gonum.org/v1/gonum — the teacher's go.mod lists it but never
// exercises it).
package palette

import (
	"fmt"
	"image"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Color is one extracted palette entry.
type Color struct {
	R, G, B uint8
}

// Hex renders the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// maxSamples bounds the pixel matrix k-means runs over; a 4K image has
// millions of pixels and the clustering result converges long before
// every one is visited.
const maxSamples = 20000

// Extract runs k-means with k clusters over img's pixels (grid-sampled down
// to maxSamples points for large images) and returns the cluster centroids
// ordered by cluster population, largest first.
func Extract(img image.Image, k int, seed int64) ([]Color, error) {
	if k <= 0 {
		return nil, fmt.Errorf("palette: k must be positive, got %d", k)
	}
	samples := sample(img, maxSamples)
	if len(samples) == 0 {
		return nil, fmt.Errorf("palette: image has no pixels")
	}
	if len(samples) < k {
		k = len(samples)
	}

	data := mat.NewDense(len(samples), 3, nil)
	for i, s := range samples {
		data.SetRow(i, []float64{s[0], s[1], s[2]})
	}

	centroids, assignments := kmeans(data, k, seed)

	counts := make([]int, k)
	for _, a := range assignments {
		counts[a]++
	}

	order := make([]int, k)
	for i := range order {
		order[i] = i
	}
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			if counts[order[j]] > counts[order[i]] {
				order[i], order[j] = order[j], order[i]
			}
		}
	}

	out := make([]Color, 0, k)
	for _, idx := range order {
		if counts[idx] == 0 {
			continue
		}
		row := centroids.RawRowView(idx)
		out = append(out, Color{
			R: clamp8(row[0]),
			G: clamp8(row[1]),
			B: clamp8(row[2]),
		})
	}
	return out, nil
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(math.Round(v))
}

// sample grid-walks img, collecting up to limit (r, g, b) float64 triples.
func sample(img image.Image, limit int) [][3]float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	total := w * h
	if total == 0 {
		return nil
	}
	stride := 1
	if total > limit {
		stride = int(math.Ceil(math.Sqrt(float64(total) / float64(limit))))
		if stride < 1 {
			stride = 1
		}
	}

	out := make([][3]float64, 0, limit)
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
		for x := bounds.Min.X; x < bounds.Max.X; x += stride {
			if len(out) == limit {
				return out
			}
			r, g, b, _ := img.At(x, y).RGBA()
			out = append(out, [3]float64{float64(r >> 8), float64(g >> 8), float64(b >> 8)})
		}
	}
	return out
}

// kmeans runs Lloyd's algorithm to convergence (or maxIterations) over
// data's rows, returning the k centroids and each row's assigned cluster.
func kmeans(data *mat.Dense, k int, seed int64) (*mat.Dense, []int) {
	const maxIterations = 50
	n, dims := data.Dims()

	rng := rand.New(rand.NewSource(seed))
	centroids := mat.NewDense(k, dims, nil)
	picked := rng.Perm(n)[:k]
	for i, rowIdx := range picked {
		centroids.SetRow(i, data.RawRowView(rowIdx))
	}

	assignments := make([]int, n)
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i := 0; i < n; i++ {
			row := data.RawRowView(i)
			best, bestDist := 0, math.MaxFloat64
			for c := 0; c < k; c++ {
				d := squaredDist(row, centroids.RawRowView(c))
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := 0; c < k; c++ {
			sums[c] = make([]float64, dims)
		}
		for i := 0; i < n; i++ {
			c := assignments[i]
			row := data.RawRowView(i)
			for d := 0; d < dims; d++ {
				sums[c][d] += row[d]
			}
			counts[c]++
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			for d := 0; d < dims; d++ {
				sums[c][d] /= float64(counts[c])
			}
			centroids.SetRow(c, sums[c])
		}
	}

	return centroids, assignments
}

func squaredDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
