package dockerclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/moby/term"
)

const (
	dockerMaxNameLen = 255
	shortLen         = 6       // length of the hash-like suffix
	tailMarker       = "tail-" // visible indicator that we trimmed the left side
)

type DockerContainerRunner interface {
	RunContainer(ctx context.Context, imageRef, project string, envs []string) (int64, error)
}

// RunContainer emulates:
//
//	docker run --rm -it -e ...envs... IMAGE
//
// - uses the image's baked-in CMD (the bot entrypoint)
// - attaches with a real TTY so the bot's output streams live
// - removes the container on exit
func (dc *dockerClient) RunContainer(ctx context.Context, imageRef, project string, envs []string) (int64, error) {
	cfg := &container.Config{
		Image: imageRef,
		Env:   envs,

		Tty:          true,
		OpenStdin:    true,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
	}

	created, err := dc.client.ContainerCreate(ctx, cfg, &container.HostConfig{}, nil, nil, resolveContainerName(project))
	if err != nil {
		return 0, fmt.Errorf("container create: %w", err)
	}
	id := created.ID

	defer func() {
		_ = dc.client.ContainerRemove(context.Background(), id, container.RemoveOptions{
			Force: true,
		})
	}()

	// Put the local terminal in raw mode so key events reach the container.
	inFd, isTerm := term.GetFdInfo(os.Stdin)
	var oldState *term.State
	if isTerm {
		oldState, err = term.MakeRaw(inFd)
		if err != nil {
			return 0, fmt.Errorf("make raw: %w", err)
		}
		defer term.RestoreTerminal(inFd, oldState)
	}

	// Attach BEFORE start (like docker run)
	attach, err := dc.client.ContainerAttach(ctx, id, container.AttachOptions{
		Stream: true,
		Stdin:  true,
		Stdout: true,
		Stderr: true,
		Logs:   false,
	})
	if err != nil {
		return 0, fmt.Errorf("container attach: %w", err)
	}
	defer attach.Close()

	if err := dc.client.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return 0, fmt.Errorf("container start: %w", err)
	}

	// Initial resize AFTER start so it takes effect immediately.
	if isTerm {
		if ws, err := term.GetWinsize(inFd); err == nil {
			_ = dc.client.ContainerResize(ctx, id, container.ResizeOptions{
				Height: uint(ws.Height),
				Width:  uint(ws.Width),
			})
		}
	}

	// Watch for future resizes (SIGWINCH)
	if isTerm {
		resizeCh := make(chan os.Signal, 1)
		signal.Notify(resizeCh, syscall.SIGWINCH)
		go func() {
			for range resizeCh {
				if ws, err := term.GetWinsize(inFd); err == nil {
					_ = dc.client.ContainerResize(context.Background(), id, container.ResizeOptions{
						Height: uint(ws.Height),
						Width:  uint(ws.Width),
					})
				}
			}
		}()
	}

	// Let Ctrl+C reach the bot process; only treat SIGTERM as "kill from outside".
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGTERM)
	go func() {
		<-stopCh
		_ = dc.client.ContainerKill(context.Background(), id, "SIGTERM")
	}()

	// stdin → container
	go func() {
		_, _ = io.Copy(attach.Conn, os.Stdin)
	}()

	// container → stdout (TTY=true: merged)
	go func() {
		_, _ = io.Copy(os.Stdout, attach.Reader)
	}()

	statusCh, errCh := dc.client.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return 0, fmt.Errorf("container wait: %w", err)
		}
	case st := <-statusCh:
		return st.StatusCode, nil
	}

	return 0, nil
}

// ContainerName: "<project>-<short>", trimming from the LEFT if needed and
// prefixing with "tail-" to show it was trimmed.
func resolveContainerName(project string) string {
	short := shortHash(project+
		"|"+time.Now().UTC().Format(time.RFC3339Nano)+
		"|"+procTag(),
		shortLen)

	// Ideal: project + "-" + short
	need := len(project) + 1 + len(short)
	if need <= dockerMaxNameLen {
		return project + "-" + short
	}

	// Not enough room. Keep the tail of project and add a visible marker.
	maxProject := dockerMaxNameLen - 1 - len(short) // room for '-' + short
	keep := maxProject - len(tailMarker)
	if keep < 1 {
		keep = 1
	}
	if keep > len(project) {
		keep = len(project)
	}
	trimmedTail := project[len(project)-keep:]

	return tailMarker + trimmedTail + "-" + short
}

func shortHash(s string, n int) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])[:n]
}

// tiny process tag without extra deps
func procTag() string {
	pid := os.Getpid()
	return hex.EncodeToString([]byte{
		byte(pid >> 24), byte(pid >> 16), byte(pid >> 8), byte(pid),
	})
}
