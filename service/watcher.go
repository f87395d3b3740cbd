package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/fsnotify/fsnotify"

	"vault"
	"vault/domain"
)

// Watcher observes a bundle directory on disk and re-imports it when
// files change. Events are debounced so a multi-file bundle write
// triggers a single import.
type Watcher struct {
	vault    *vault.Vault
	recorder *Recorder
	codec    domain.Codec
	dir      string
	guard    Guard

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

// NewWatcher creates a watcher for dir. Call Start to begin watching.
func NewWatcher(v *vault.Vault, recorder *Recorder, c domain.Codec, dir string) *Watcher {
	return &Watcher{vault: v, recorder: recorder, codec: c, dir: dir}
}

// Start begins watching the bundle directory.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return err
	}
	w.watcher = fw

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	go w.loop(watchCtx, fw)
	log.Printf("vault watcher: watching %s", w.dir)
	return nil
}

// Stop tears down the watcher and waits for an in-flight import.
func (w *Watcher) Stop(ctx context.Context) {
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if w.watcher != nil {
		// Closing ends the loop goroutine via its closed Events
		// channel; the loop holds its own reference to the watcher.
		w.watcher.Close()
		w.watcher = nil
	}
	w.guard.WaitAll(ctx)
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(500*time.Millisecond, func() {
				w.runImport(ctx)
			})
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			log.Printf("vault watcher: error: %v", err)
		}
	}
}

func (w *Watcher) runImport(ctx context.Context) {
	started := time.Now().UTC()

	var fileCount int
	err := w.guard.Do(ctx, "import:"+w.dir, func(runCtx context.Context) error {
		bundle, err := vault.ReadBundleDir(w.dir)
		if err != nil {
			return err
		}
		fileCount = len(bundle)
		return w.vault.Import(runCtx, vault.ImportOptions{Files: bundle, Codec: w.codec})
	})
	if errors.Is(err, ErrBusy) {
		log.Printf("vault watcher: import of %s already running, skipping", w.dir)
		return
	}

	w.recorder.Record(ctx, "import", w.dir, started, fileCount, err)

	if err != nil {
		log.Printf("vault watcher: import of %s failed: %v", w.dir, err)
		return
	}
	log.Printf("vault watcher: imported %d file(s) from %s", fileCount, w.dir)
}
