package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"vault"
	"vault/domain"
)

// ExportTarget describes one scheduled export: which adapters, which
// codec, and the directory the bundle is written to.
type ExportTarget struct {
	AdapterIDs []string
	Codec      domain.Codec
	Dir        string
}

// Scheduler runs exports on cron expressions. Build one, add targets,
// then Start it; Stop tears the cron down and waits for in-flight runs.
type Scheduler struct {
	vault    *vault.Vault
	recorder *Recorder
	guard    Guard
	sched    *cron.Cron
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(v *vault.Vault, recorder *Recorder) *Scheduler {
	return &Scheduler{
		vault:    v,
		recorder: recorder,
		sched:    cron.New(),
	}
}

// Schedule registers an export target on a cron expression.
func (s *Scheduler) Schedule(expr string, target ExportTarget) error {
	_, err := s.sched.AddFunc(expr, func() {
		s.runExport(context.Background(), target)
	})
	return err
}

// Start begins firing scheduled exports.
func (s *Scheduler) Start() {
	s.sched.Start()
	log.Printf("vault scheduler: started")
}

// Stop halts the cron and waits for running exports to finish or ctx
// to be cancelled.
func (s *Scheduler) Stop(ctx context.Context) {
	s.sched.Stop()
	s.guard.WaitAll(ctx)
	log.Printf("vault scheduler: stopped")
}

func (s *Scheduler) runExport(ctx context.Context, target ExportTarget) {
	started := time.Now().UTC()

	var fileCount int
	err := s.guard.Do(ctx, "export:"+target.Dir, func(runCtx context.Context) error {
		bundle, err := s.vault.Export(runCtx, vault.ExportOptions{
			AdapterIDs: target.AdapterIDs,
			Codec:      target.Codec,
		})
		if err != nil {
			return err
		}
		fileCount = len(bundle)
		return bundle.WriteDir(target.Dir)
	})
	if errors.Is(err, ErrBusy) {
		log.Printf("vault scheduler: export to %s already running, skipping", target.Dir)
		return
	}

	adapterKey := strings.Join(target.AdapterIDs, ",")
	if adapterKey == "" {
		adapterKey = strings.Join(s.vault.AdapterIDs(), ",")
	}
	s.recorder.Record(ctx, "export", adapterKey, started, fileCount, err)

	if err != nil {
		log.Printf("vault scheduler: export to %s failed: %v", target.Dir, err)
		return
	}
	log.Printf("vault scheduler: exported %d file(s) to %s", fileCount, target.Dir)
}
