package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"eisim-progress/internal/filelock"
	"eisim-progress/internal/logger"
	"eisim-progress/internal/metrics"
	"eisim-progress/internal/model"
)

// ErrCollision means a source entry has the same name as an entry already in
// its destination. Nothing is moved when a plan contains a collision.
var ErrCollision = errors.New("entry already exists in destination episode")

// ErrMissingFolder means a plan references a folder that is not on disk.
var ErrMissingFolder = errors.New("episode folder missing")

// Options configures Run and Apply.
type Options struct {
	// Threshold defaults to DefaultSplitThreshold.
	Threshold time.Duration
	// DryRun plans without touching the filesystem.
	DryRun bool
	// NoWait fails with filelock.ErrLocked instead of waiting for another
	// reconciler working on the same directory.
	NoWait  bool
	Logger  logger.Logger
	Metrics *metrics.Manager
}

// Move records one entry moved from one episode folder to another.
type Move struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// ApplyReport summarizes what Apply changed on disk.
type ApplyReport struct {
	Merges int    `json:"merges" yaml:"merges"`
	Moves  []Move `json:"moves" yaml:"moves"`
}

// journal records applied steps so a failed Apply can be undone.
type journal struct {
	steps []step
}

type step struct {
	move    *Move
	removed string
	// mode of the removed folder, restored on rollback.
	mode os.FileMode
}

func (j *journal) rollback() error {
	var errs []error
	for i := len(j.steps) - 1; i >= 0; i-- {
		s := j.steps[i]
		switch {
		case s.removed != "":
			perm := s.mode.Perm()
			if perm == 0 {
				perm = 0o755
			}
			if err := os.Mkdir(s.removed, perm); err != nil && !os.IsExist(err) {
				errs = append(errs, fmt.Errorf("recreate %s: %w", s.removed, err))
				continue
			}
			// Mkdir is subject to the umask.
			if err := os.Chmod(s.removed, perm); err != nil {
				errs = append(errs, fmt.Errorf("restore mode of %s: %w", s.removed, err))
			}
		case s.move != nil:
			if err := os.Rename(s.move.To, s.move.From); err != nil {
				errs = append(errs, fmt.Errorf("move back %s: %w", s.move.To, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Apply executes plan under dir while holding the directory lock. Every
// merge moves all entries of the source folder into the destination folder
// and removes the source. If any step fails, the steps already taken are
// reverted before returning.
func Apply(ctx context.Context, dir string, plan MergePlan, opts Options) (ApplyReport, error) {
	log := logger.OrNop(opts.Logger)
	var report ApplyReport
	if plan.Empty() {
		return report, nil
	}

	lock := filelock.ForDir(dir)
	if opts.NoWait {
		if err := lock.TryLock(); err != nil {
			return report, err
		}
	} else if err := lock.Lock(); err != nil {
		return report, err
	}
	defer lock.Unlock()

	if err := validate(dir, plan); err != nil {
		return report, err
	}

	j := &journal{}
	if err := execute(ctx, dir, plan, j, &report); err != nil {
		if rbErr := j.rollback(); rbErr != nil {
			log.Error(ctx, "rollback incomplete", logger.String("dir", dir), logger.Error(rbErr))
			return ApplyReport{}, errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		log.Warn(ctx, "reconciliation rolled back", logger.String("dir", dir), logger.Error(err))
		return ApplyReport{}, err
	}

	opts.Metrics.RecordMerges(report.Merges, len(report.Moves))
	log.Info(ctx, "reconciled split episodes",
		logger.String("dir", dir),
		logger.Int("merges", report.Merges),
		logger.Int("moved", len(report.Moves)))
	return report, nil
}

// validate replays the plan over the current folder contents and rejects it
// before anything moves.
func validate(dir string, plan MergePlan) error {
	contents := map[string]map[string]bool{}
	removed := map[string]bool{}
	load := func(name string) (map[string]bool, error) {
		if removed[name] {
			return nil, fmt.Errorf("%s already merged away: %w", name, ErrMissingFolder)
		}
		if c, ok := contents[name]; ok {
			return c, nil
		}
		entries, err := os.ReadDir(filepath.Join(dir, name))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%s: %w", name, ErrMissingFolder)
			}
			return nil, err
		}
		c := make(map[string]bool, len(entries))
		for _, e := range entries {
			c[e.Name()] = true
		}
		contents[name] = c
		return c, nil
	}

	for _, m := range plan.Merges {
		src, err := load(m.Source)
		if err != nil {
			return err
		}
		dst, err := load(m.Destination)
		if err != nil {
			return err
		}
		for name := range src {
			if dst[name] {
				return fmt.Errorf("merge %s into %s: %s: %w", m.Source, m.Destination, name, ErrCollision)
			}
			dst[name] = true
		}
		delete(contents, m.Source)
		removed[m.Source] = true
	}
	return nil
}

func execute(ctx context.Context, dir string, plan MergePlan, j *journal, report *ApplyReport) error {
	for _, m := range plan.Merges {
		if err := ctx.Err(); err != nil {
			return err
		}
		srcDir := filepath.Join(dir, m.Source)
		dstDir := filepath.Join(dir, m.Destination)

		entries, err := os.ReadDir(srcDir)
		if err != nil {
			return fmt.Errorf("read %s: %w", srcDir, err)
		}
		for _, e := range entries {
			mv := Move{From: filepath.Join(srcDir, e.Name()), To: filepath.Join(dstDir, e.Name())}
			if _, err := os.Lstat(mv.To); err == nil {
				return fmt.Errorf("%s: %w", mv.To, ErrCollision)
			}
			if err := os.Rename(mv.From, mv.To); err != nil {
				return fmt.Errorf("move %s: %w", mv.From, err)
			}
			j.steps = append(j.steps, step{move: &mv})
			report.Moves = append(report.Moves, mv)
		}
		info, err := os.Stat(srcDir)
		if err != nil {
			return fmt.Errorf("stat %s: %w", srcDir, err)
		}
		if err := os.Remove(srcDir); err != nil {
			return fmt.Errorf("remove %s: %w", srcDir, err)
		}
		j.steps = append(j.steps, step{removed: srcDir, mode: info.Mode()})
		report.Merges++
	}
	return nil
}

// Run lists the episode folders under dir, plans the merges and, unless
// DryRun is set, applies them.
func Run(ctx context.Context, dir string, opts Options) (MergePlan, ApplyReport, error) {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultSplitThreshold
	}
	folders, err := model.ListEpisodes(dir)
	if err != nil {
		return MergePlan{}, ApplyReport{}, err
	}
	plan := Plan(folders, threshold)
	logger.OrNop(opts.Logger).Debug(ctx, "merge plan",
		logger.String("dir", dir),
		logger.Int("episodes", len(folders)),
		logger.Int("merges", len(plan.Merges)))

	if opts.DryRun || plan.Empty() {
		return plan, ApplyReport{}, nil
	}
	report, err := Apply(ctx, dir, plan, opts)
	if err != nil {
		return plan, ApplyReport{}, err
	}
	return plan, report, nil
}
