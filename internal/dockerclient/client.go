package dockerclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/go-sdk/client"
)

type dockerClient struct {
	client client.SDKClient
}

type DockerClient interface {
	DockerImageBuilder
	DockerContainerRunner
	ImageExists(context.Context, string) bool
	ResolveBaseImage(ctx context.Context, ref string) error
	RemoveImage(ctx context.Context, imageRef string) error
}

func NewDockerClient() (*dockerClient, error) {
	client, err := client.New(
		context.Background(),
		client.WithLogger(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))),
	)
	if err != nil {
		return nil, err
	}

	return &dockerClient{
		client: client,
	}, nil
}

func (dc *dockerClient) ImageExists(ctx context.Context, imageRef string) bool {
	_, err := dc.client.ImageInspect(ctx, imageRef)

	return err == nil
}

// ResolveBaseImage makes sure the pinned base is available locally,
// pulling it when the daemon doesn't have it yet.
func (dc *dockerClient) ResolveBaseImage(ctx context.Context, ref string) error {
	if dc.ImageExists(ctx, ref) {
		return nil
	}

	rc, err := dc.client.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull %s: %w", ref, err)
	}
	defer rc.Close()

	// The pull only completes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("pull %s: %w", ref, err)
	}

	return nil
}

func (dc *dockerClient) RemoveImage(ctx context.Context, imageRef string) error {
	_, err := dc.client.ImageRemove(ctx, imageRef, image.RemoveOptions{
		Force:         true,
		PruneChildren: true,
	})
	return err
}
