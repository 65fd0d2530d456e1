package classifier

import (
	"fmt"
	"sort"
)

// scorer returns the log-odds of the positive class.
type scorer interface {
	margin(x map[string]float64) (float64, error)
}

type logistic struct {
	intercept float64
	names     []string
	weights   []float64
}

func newLogistic(l Logistic, enc *encoder) (*logistic, error) {
	if len(l.Weights) == 0 {
		return nil, fmt.Errorf("logistic artifact has no weights")
	}
	m := &logistic{intercept: l.Intercept}
	// fixed summation order keeps repeated predictions bit-identical
	for name := range l.Weights {
		if !enc.has(name) {
			return nil, incompatible("weight for %s, which the preprocessing does not produce", name)
		}
		m.names = append(m.names, name)
	}
	sort.Strings(m.names)
	for _, name := range m.names {
		m.weights = append(m.weights, l.Weights[name])
	}
	return m, nil
}

func (m *logistic) margin(x map[string]float64) (float64, error) {
	z := m.intercept
	for i, name := range m.names {
		v, ok := x[name]
		if !ok {
			return 0, fmt.Errorf("missing model input %s", name)
		}
		z += m.weights[i] * v
	}
	return z, nil
}

type boosting struct {
	init  float64
	rate  float64
	trees []Tree
}

func newBoosting(b Boosting, enc *encoder) (*boosting, error) {
	if len(b.Trees) == 0 {
		return nil, fmt.Errorf("boosting artifact has no trees")
	}
	rate := b.LearningRate
	if rate == 0 {
		rate = 1
	}
	for ti, t := range b.Trees {
		if len(t.Nodes) == 0 {
			return nil, fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, n := range t.Nodes {
			if n.Leaf {
				continue
			}
			if !enc.has(n.Feature) {
				return nil, incompatible("tree %d splits on %s, which the preprocessing does not produce", ti, n.Feature)
			}
			// children always point forward, so a walk cannot loop
			if n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return nil, fmt.Errorf("tree %d node %d has invalid children %d/%d", ti, ni, n.Left, n.Right)
			}
		}
	}
	return &boosting{init: b.Init, rate: rate, trees: b.Trees}, nil
}

func (m *boosting) margin(x map[string]float64) (float64, error) {
	sum := 0.0
	for ti, t := range m.trees {
		i := 0
		for !t.Nodes[i].Leaf {
			n := t.Nodes[i]
			v, ok := x[n.Feature]
			if !ok {
				return 0, fmt.Errorf("tree %d: missing model input %s", ti, n.Feature)
			}
			if v <= n.Threshold {
				i = n.Left
			} else {
				i = n.Right
			}
		}
		sum += t.Nodes[i].Value
	}
	return m.init + m.rate*sum, nil
}
