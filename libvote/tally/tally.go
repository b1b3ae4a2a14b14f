// Package tally reads per-candidate vote counts from the ledger and turns
// them into percentage annotated result rows.
package tally

import (
	"context"
	"math/big"
	"sort"

	"github.com/crypto-power/cryptovote/libvote/election"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the number of ledger reads in flight.
const DefaultConcurrency = 8

// Reader is the part of the ledger the aggregator reads.
type Reader interface {
	Votes(ctx context.Context, contractAddress, candidateID string) (*big.Int, error)
	AllVotes(ctx context.Context, contractAddress string) ([]*big.Int, error)
}

type Aggregator struct {
	ledger      Reader
	concurrency int
}

func NewAggregator(ledger Reader, concurrency int) *Aggregator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Aggregator{ledger: ledger, concurrency: concurrency}
}

// ComputeTally returns the result of every descriptor keyed by election id.
// Rows follow each descriptor's candidate order. Calling it twice against
// unchanged ledger state returns identical results.
func (a *Aggregator) ComputeTally(ctx context.Context, descriptors []*election.Descriptor) (map[string]*election.Result, error) {
	counts := make([][]int64, len(descriptors))
	bulk := make([][]*big.Int, len(descriptors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, desc := range descriptors {
		i, desc := i, desc
		counts[i] = make([]int64, len(desc.Candidates))

		g.Go(func() error {
			votes, err := a.ledger.AllVotes(gctx, desc.ContractAddress)
			if err != nil {
				if gctx.Err() == nil {
					log.Warnf("Election %s: getAllVotes failed, using per-candidate counts only: %v", desc.ID, err)
				}
				return nil
			}
			bulk[i] = votes
			return nil
		})
		for j, c := range desc.Candidates {
			j, c := j, c
			g.Go(func() error {
				votes, err := a.ledger.Votes(gctx, desc.ContractAddress, c.ID)
				if err != nil {
					return err
				}
				counts[i][j] = clamp(votes)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		log.Errorf("Tally failed: %v", err)
		return nil, err
	}

	results := make(map[string]*election.Result, len(descriptors))
	for i, desc := range descriptors {
		result := buildResult(desc, counts[i])
		if bulk[i] == nil {
			results[desc.ID] = result
			continue
		}
		if bulkTotal := sumClamped(bulk[i]); bulkTotal != result.TotalVotes {
			log.Warnf("Election %s: getAllVotes sums to %d but the roster holds %d votes",
				desc.ID, bulkTotal, result.TotalVotes)
		}
		results[desc.ID] = result
	}
	return results, nil
}

// buildResult assembles the rows of one election from its clamped roster
// counts.
func buildResult(desc *election.Descriptor, counts []int64) *election.Result {
	result := &election.Result{
		ElectionID:      desc.ID,
		Name:            desc.Name,
		ContractAddress: desc.ContractAddress,
		Rows:            make([]election.TallyRow, len(desc.Candidates)),
	}
	for _, n := range counts {
		result.TotalVotes += n
	}

	percentages := Percentages(counts)
	for j, c := range desc.Candidates {
		result.Rows[j] = election.TallyRow{
			CandidateID: c.ID,
			DisplayName: c.DisplayName,
			VoteCount:   counts[j],
			Percentage:  percentages[j],
		}
	}
	return result
}

// Percentages converts counts into percentages with two decimals that sum
// to exactly 100 when any votes were cast. Hundredths are distributed by
// largest remainder, ties going to the earlier entry, so a row can differ
// from plain per-row rounding by 0.01. All entries are zero when the total
// is zero.
func Percentages(counts []int64) []float64 {
	percentages := make([]float64, len(counts))

	var total int64
	for _, n := range counts {
		if n > 0 {
			total += n
		}
	}
	if total == 0 {
		return percentages
	}

	const scale = 10000 // hundredths of a percent
	hundredths := make([]int64, len(counts))
	remainders := make([]int64, len(counts))
	var assigned int64
	for i, n := range counts {
		if n <= 0 {
			continue
		}
		scaled := new(big.Int).Mul(big.NewInt(n), big.NewInt(scale))
		q, r := new(big.Int).QuoRem(scaled, big.NewInt(total), new(big.Int))
		hundredths[i] = q.Int64()
		remainders[i] = r.Int64()
		assigned += hundredths[i]
	}

	order := make([]int, len(counts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for k := int64(0); k < scale-assigned; k++ {
		hundredths[order[int(k)%len(order)]]++
	}

	for i, h := range hundredths {
		percentages[i] = float64(h) / 100
	}
	return percentages
}

// clamp converts a ledger count to int64, counting negative or oversized
// values as zero.
func clamp(v *big.Int) int64 {
	if v == nil || v.Sign() <= 0 || !v.IsInt64() {
		return 0
	}
	return v.Int64()
}

func sumClamped(values []*big.Int) int64 {
	var total int64
	for _, v := range values {
		total += clamp(v)
	}
	return total
}
