package split

import (
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"glossmerge/internal/logging"
	"glossmerge/internal/records"
	"glossmerge/internal/textutil"
)

// RatioWarning reports that rebalancing could not reach the target ratio
// because too many records were locked. Non-fatal: the best achieved
// assignment is still returned.
type RatioWarning struct {
	Target   [3]float64
	Achieved [3]float64
}

// Outcome carries the final split per record plus rebalancing diagnostics.
type Outcome struct {
	Final  map[records.Key]records.Split
	Locked map[records.Key]bool
	// Moved counts records reassigned out of train by rebalancing.
	Moved        int
	LockedGroups int
	CountsBefore map[records.Split]int
	CountsAfter  map[records.Split]int
	Target       [3]float64
	Achieved     [3]float64
	// Warning is nil when every partition landed within slack of target.
	Warning *RatioWarning
}

// Assigner computes final splits.
type Assigner struct {
	// Ratio holds train/val/test target weights, normalized by their sum.
	Ratio [3]float64
	// Slack is the acceptable deviation of a partition's share from target.
	Slack float64
	Seed  int64
	// Stratify spreads rebalancing moves across labels so each label's
	// representation stays roughly proportional.
	Stratify bool

	logger *slog.Logger
}

// NewAssigner constructs a split assigner.
func NewAssigner(ratio [3]float64, slack float64, seed int64, stratify bool, logger *slog.Logger) *Assigner {
	return &Assigner{
		Ratio:    ratio,
		Slack:    slack,
		Seed:     seed,
		Stratify: stratify,
		logger:   logging.NewComponentLogger(logger, "split"),
	}
}

// Assign computes a final split for every surviving record. Identical
// inputs and seed produce an identical outcome.
func (a *Assigner) Assign(survivors []records.Instance) *Outcome {
	ordered := stableOrder(survivors)

	outcome := &Outcome{
		Final:        make(map[records.Key]records.Split, len(ordered)),
		Locked:       make(map[records.Key]bool),
		CountsBefore: make(map[records.Split]int),
		CountsAfter:  make(map[records.Split]int),
		Target:       normalizeRatio(a.Ratio),
	}
	if len(ordered) == 0 {
		return outcome
	}

	a.applyConflictLocks(ordered, outcome)
	a.applyInheritedDefaults(ordered, outcome)

	for _, rec := range ordered {
		outcome.CountsBefore[outcome.Final[rec.Key()]]++
	}

	a.rebalance(ordered, outcome)

	for _, rec := range ordered {
		outcome.CountsAfter[outcome.Final[rec.Key()]]++
	}
	total := float64(len(ordered))
	for i, split := range records.AllSplits {
		outcome.Achieved[i] = float64(outcome.CountsAfter[split]) / total
	}
	a.checkRatio(outcome, len(ordered))
	return outcome
}

// applyConflictLocks implements Rule 1: URL-groups with disagreeing
// original splits collapse to the strictest split and are locked.
func (a *Assigner) applyConflictLocks(ordered []records.Instance, outcome *Outcome) {
	groups := make(map[string][]records.Key)
	splits := make(map[string]map[records.Split]struct{})
	strictest := make(map[string]records.Split)

	for _, rec := range ordered {
		if rec.URL == "" {
			continue
		}
		key := rec.Key()
		groups[rec.URL] = append(groups[rec.URL], key)
		if splits[rec.URL] == nil {
			splits[rec.URL] = make(map[records.Split]struct{})
		}
		splits[rec.URL][rec.OriginalSplit] = struct{}{}
		if current, ok := strictest[rec.URL]; ok {
			strictest[rec.URL] = records.StricterSplit(current, rec.OriginalSplit)
		} else {
			strictest[rec.URL] = rec.OriginalSplit
		}
	}

	for url, members := range groups {
		if len(splits[url]) < 2 {
			continue
		}
		winner := strictest[url]
		outcome.LockedGroups++
		for _, key := range members {
			outcome.Final[key] = winner
			outcome.Locked[key] = true
		}
		a.logger.Debug("conflict lock applied",
			logging.String("url", url),
			logging.String("split", string(winner)),
			logging.Int("records", len(members)))
	}
}

// applyInheritedDefaults implements Rule 2: unlocked records take their own
// source's original split verbatim.
func (a *Assigner) applyInheritedDefaults(ordered []records.Instance, outcome *Outcome) {
	for _, rec := range ordered {
		key := rec.Key()
		if _, locked := outcome.Final[key]; locked {
			continue
		}
		outcome.Final[key] = rec.OriginalSplit
	}
}

// rebalance implements Rule 3: seeded one-directional movement of unlocked
// train records into whichever of val/test sits furthest below target,
// until every partition is within slack or no eligible record remains.
func (a *Assigner) rebalance(ordered []records.Instance, outcome *Outcome) {
	total := len(ordered)
	target := outcome.Target
	slackCount := a.Slack * float64(total)

	counts := make(map[records.Split]int)
	for _, rec := range ordered {
		counts[outcome.Final[rec.Key()]]++
	}

	candidates := a.candidateOrder(ordered, outcome)

	deficit := func(split records.Split, idx int) float64 {
		return target[idx]*float64(total) - float64(counts[split])
	}

	for _, rec := range candidates {
		trainExcess := -deficit(records.SplitTrain, 0)
		valDeficit := deficit(records.SplitVal, 1)
		testDeficit := deficit(records.SplitTest, 2)
		withinSlack := trainExcess <= slackCount && valDeficit <= slackCount && testDeficit <= slackCount
		if withinSlack {
			break
		}
		if valDeficit <= 0 && testDeficit <= 0 {
			// Nothing is below target; another move cannot improve.
			break
		}

		destination := records.SplitVal
		if testDeficit > valDeficit {
			destination = records.SplitTest
		}

		key := rec.Key()
		outcome.Final[key] = destination
		counts[records.SplitTrain]--
		counts[destination]++
		outcome.Moved++
	}
}

// candidateOrder returns unlocked train records in the order rebalancing
// consumes them: seeded shuffle, optionally interleaved per label so no
// single label drains into val/test first.
func (a *Assigner) candidateOrder(ordered []records.Instance, outcome *Outcome) []records.Instance {
	var candidates []records.Instance
	for _, rec := range ordered {
		key := rec.Key()
		if outcome.Locked[key] {
			continue
		}
		if outcome.Final[key] != records.SplitTrain {
			continue
		}
		candidates = append(candidates, rec)
	}

	rng := rand.New(rand.NewSource(a.Seed))
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if !a.Stratify {
		return candidates
	}

	byLabel := make(map[string][]records.Instance)
	var labelOrder []string
	for _, rec := range candidates {
		label := textutil.NormalizeLabel(rec.LabelText)
		if _, seen := byLabel[label]; !seen {
			labelOrder = append(labelOrder, label)
		}
		byLabel[label] = append(byLabel[label], rec)
	}

	interleaved := make([]records.Instance, 0, len(candidates))
	for len(interleaved) < len(candidates) {
		for _, label := range labelOrder {
			bucket := byLabel[label]
			if len(bucket) == 0 {
				continue
			}
			interleaved = append(interleaved, bucket[0])
			byLabel[label] = bucket[1:]
		}
	}
	return interleaved
}

func (a *Assigner) checkRatio(outcome *Outcome, total int) {
	for i := range records.AllSplits {
		if math.Abs(outcome.Achieved[i]-outcome.Target[i]) > a.Slack {
			outcome.Warning = &RatioWarning{Target: outcome.Target, Achieved: outcome.Achieved}
			a.logger.Warn("target ratio unachievable with current locks",
				logging.Float64("target_train", outcome.Target[0]),
				logging.Float64("target_val", outcome.Target[1]),
				logging.Float64("target_test", outcome.Target[2]),
				logging.Float64("achieved_train", outcome.Achieved[0]),
				logging.Float64("achieved_val", outcome.Achieved[1]),
				logging.Float64("achieved_test", outcome.Achieved[2]))
			return
		}
	}
}

func stableOrder(survivors []records.Instance) []records.Instance {
	ordered := make([]records.Instance, len(survivors))
	copy(ordered, survivors)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Source != ordered[j].Source {
			return ordered[i].Source < ordered[j].Source
		}
		return ordered[i].InstanceID < ordered[j].InstanceID
	})
	return ordered
}

func normalizeRatio(ratio [3]float64) [3]float64 {
	sum := ratio[0] + ratio[1] + ratio[2]
	if sum <= 0 {
		return [3]float64{1, 0, 0}
	}
	return [3]float64{ratio[0] / sum, ratio[1] / sum, ratio[2] / sum}
}
