package cache

import (
	"context"
	"errors"
)

// Store persists the inputs-key → image mapping. The sqlite build store
// implements it.
type Store interface {
	LookupImage(ctx context.Context, key string) (imageID string, found bool, err error)
	RecordImage(ctx context.Context, key, imageID string) error
	ForgetImage(ctx context.Context, key string) error
}

// Manager answers "is there already an image for these build inputs?" and
// otherwise runs the build exactly once, guarded by the fs lock so two
// botpack invocations never build the same inputs concurrently.
type Manager struct {
	mu    FSMutex
	store Store
}

func NewManager(lockPath string, store Store) (*Manager, error) {
	if lockPath == "" {
		return nil, errors.New("lock path required")
	}
	if store == nil {
		return nil, errors.New("store required")
	}
	return &Manager{
		mu:    NewFSMutex(lockPath),
		store: store,
	}, nil
}

// ResolveImage returns the image for inputsKey, building it if needed.
// The returned bool reports whether the image came from cache.
//
// We don't fully rely on our own record: the image may have been pruned from
// the daemon since it was recorded, so every hit is re-verified through
// imageExists before being returned. Docker's layer cache still makes the
// rebuild cheap in that case.
func (m *Manager) ResolveImage(
	ctx context.Context,
	inputsKey CacheKey,
	imageExists func(context.Context, ImageID) bool,
	buildImage func(ctx context.Context) (ImageID, error),
) (ImageID, bool, error) {
	if imageExists == nil || buildImage == nil {
		return "", false, errors.New("helpers imageExists and buildImage are mandatory for image resolving")
	}

	// 40 tries at 50ms each, ~2 seconds.
	if err := m.mu.Lock(40); err != nil {
		return "", false, err
	}
	defer m.mu.Unlock()

	if id, found, err := m.store.LookupImage(ctx, string(inputsKey)); err == nil && found {
		if imageExists(ctx, ImageID(id)) {
			return ImageID(id), true, nil
		}
		// Recorded but gone from the daemon: drop the stale row and rebuild.
		_ = m.store.ForgetImage(ctx, string(inputsKey))
	}

	id, err := buildImage(ctx)
	if err != nil {
		return "", false, err
	}

	if err := m.store.RecordImage(ctx, string(inputsKey), string(id)); err != nil {
		// The image is built; a failed record only costs a future rebuild.
		return id, false, nil
	}

	return id, false, nil
}
