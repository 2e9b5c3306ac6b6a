package annotate

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vcf-annotator/internal/severity"
	"github.com/inodb/vcf-annotator/internal/vcf"
)

func newTestAnnotator() *Annotator {
	r := NewResolver(&fakeClient{}, severity.Default())
	return NewAnnotator(r, []string{"normal"})
}

func makeItems(n int) <-chan WorkItem {
	ch := make(chan WorkItem, n)
	for i := range n {
		ch <- WorkItem{
			Seq:  i,
			Line: &vcf.Line{Number: i + 1, Kind: vcf.LineData},
			Variant: &vcf.Variant{
				Line:  i + 1,
				Chrom: "1",
				Pos:   strconv.Itoa(100 + i),
				Ref:   "A",
				Alt:   []string{"T"},
				Info:  map[string]string{"TYPE": "snp"},
				Samples: map[string]map[string]string{
					"normal": {"DP": "10", "AO": "4", "RO": "6"},
				},
			},
		}
	}
	close(ch)
	return ch
}

func TestParallelAnnotate_OrderPreservation(t *testing.T) {
	ann := newTestAnnotator()

	items := makeItems(200)
	results := ann.ParallelAnnotate(context.Background(), items, 8)

	var collected []int
	err := OrderedCollect(results, func(r WorkResult) error {
		require.NoError(t, r.Err)
		collected = append(collected, r.Seq)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 200)
	for i, seq := range collected {
		assert.Equal(t, i, seq, "result %d out of order", i)
	}
}

func TestParallelAnnotate_SingleWorker(t *testing.T) {
	ann := newTestAnnotator()

	items := makeItems(50)
	results := ann.ParallelAnnotate(context.Background(), items, 1)

	var collected []int
	err := OrderedCollect(results, func(r WorkResult) error {
		collected = append(collected, r.Seq)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 50)
	for i, seq := range collected {
		assert.Equal(t, i, seq)
	}
}

func TestParallelAnnotate_EmptyInput(t *testing.T) {
	ann := newTestAnnotator()

	ch := make(chan WorkItem)
	close(ch)
	results := ann.ParallelAnnotate(context.Background(), ch, 4)

	count := 0
	err := OrderedCollect(results, func(r WorkResult) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestParallelAnnotate_PassesNonDataLines(t *testing.T) {
	ann := newTestAnnotator()

	ch := make(chan WorkItem, 2)
	ch <- WorkItem{Seq: 0, Line: &vcf.Line{Number: 1, Kind: vcf.LineMeta, Text: "##fileformat=VCFv4.1"}}
	ch <- WorkItem{Seq: 1, Line: &vcf.Line{Number: 2, Kind: vcf.LineBlank}}
	close(ch)

	var lines []string
	err := OrderedCollect(ann.ParallelAnnotate(context.Background(), ch, 2), func(r WorkResult) error {
		assert.Nil(t, r.Row)
		assert.NoError(t, r.Err)
		lines = append(lines, r.Line.Text)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"##fileformat=VCFv4.1", ""}, lines)
}

func TestOrderedCollect_EarlyError(t *testing.T) {
	ann := newTestAnnotator()

	items := makeItems(100)
	results := ann.ParallelAnnotate(context.Background(), items, 4)

	count := 0
	err := OrderedCollect(results, func(r WorkResult) error {
		count++
		if count == 5 {
			return fmt.Errorf("stop at 5")
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 5, count)
}

func TestParallelAnnotate_ProducesRows(t *testing.T) {
	ann := newTestAnnotator()

	items := makeItems(5)
	results := ann.ParallelAnnotate(context.Background(), items, 2)

	err := OrderedCollect(results, func(r WorkResult) error {
		require.NoError(t, r.Err)
		require.NotNil(t, r.Row)
		// fakeClient has no responses, so every lookup falls back.
		assert.Equal(t, []string{
			"snp", Placeholder, "10", "4", "0.4", "0.6", Placeholder,
		}, r.Row.Values())
		return nil
	})
	require.NoError(t, err)
}

func TestOrderedCollect_ReordersResults(t *testing.T) {
	results := make(chan WorkResult, 4)
	for _, seq := range []int{2, 0, 3, 1} {
		results <- WorkResult{Seq: seq, Line: &vcf.Line{Number: seq + 1}}
	}
	close(results)

	var got []int
	err := OrderedCollect(results, func(r WorkResult) error {
		got = append(got, r.Seq)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, got)
}

func TestParallelAnnotate_CancelledSkipsLookups(t *testing.T) {
	client := &fakeClient{}
	ann := NewAnnotator(NewResolver(client, severity.Default()), []string{"normal"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := ann.ParallelAnnotate(ctx, makeItems(3), 2)
	n := 0
	err := OrderedCollect(results, func(r WorkResult) error {
		n++
		assert.ErrorIs(t, r.Err, context.Canceled)
		assert.Nil(t, r.Row)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, client.Calls())
}
