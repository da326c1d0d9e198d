package cache

import (
	"errors"
	"fmt"
	"os"
	"time"
)

const lockStaleAfter = 10 * time.Minute

// FSMutex is a lock-file mutex guarding the build state against concurrent
// botpack invocations.
type FSMutex interface {
	Lock(lockTryLimit int) error
	Unlock()
}

type fsMutex struct {
	lockPath string
	locked   bool
}

func NewFSMutex(lockPath string) FSMutex {
	return &fsMutex{lockPath: lockPath, locked: false}
}

// Lock tries up to lockTryLimit times (50ms apart) to create the lock file.
// A limit <= 0 retries forever. Stale locks are removed.
func (mu *fsMutex) Lock(lockTryLimit int) error {
	tries := 0
	for {
		tries++
		if lockTryLimit > 0 && tries > lockTryLimit {
			return errors.New("can't acquire lock")
		}

		f, err := os.OpenFile(mu.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			// We acquired the lock. Stamp metadata.
			_, _ = f.WriteString(fmt.Sprintf("%d\n%d\n", os.Getpid(), time.Now().Unix()))
			_ = f.Close()
			mu.locked = true
			return nil
		}

		if !errors.Is(err, os.ErrExist) {
			return err
		}

		// Lock exists: check if it's stale.
		info, statErr := os.Stat(mu.lockPath)
		if statErr != nil {
			if errors.Is(statErr, os.ErrNotExist) {
				continue // vanished between calls, retry
			}
			return statErr
		}

		if age := time.Since(info.ModTime()); age > lockStaleAfter {
			// Consider stale. Best-effort remove; next iteration retries.
			_ = os.Remove(mu.lockPath)
			continue
		}

		time.Sleep(50 * time.Millisecond)
	}
}

// Unlock is idempotent.
func (mu *fsMutex) Unlock() {
	if !mu.locked {
		return
	}
	_ = os.Remove(mu.lockPath)
	mu.locked = false
}
