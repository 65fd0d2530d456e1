package dataset

import (
	"fmt"
	"math"
	"math/rand"
)

// Split partitions row indices 0..n-1 into train and test sets. The test
// set gets ceil(testRatio*n) rows. The permutation comes from a source seeded
// with seed, so equal inputs always give equal partitions.
func Split(n int, testRatio float64, seed int64) (train, test []int, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("test ratio must be in (0,1), got %v", testRatio)
	}
	nTest := int(math.Ceil(testRatio * float64(n)))
	nTrain := n - nTest
	if nTest == 0 || nTrain <= 0 {
		return nil, nil, fmt.Errorf("cannot split %d rows with test ratio %v: a partition would be empty", n, testRatio)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	test = append([]int(nil), perm[:nTest]...)
	train = append([]int(nil), perm[nTest:]...)
	return train, test, nil
}
