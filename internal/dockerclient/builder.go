package dockerclient

import (
	"bytes"
	"context"
	"fmt"

	"github.com/botpack/botpack/internal/buildcontext"
	"github.com/docker/docker/api/types/build"
	sdkimage "github.com/docker/go-sdk/image"
)

type DockerImageBuilder interface {
	BuildImage(ctx context.Context, bctx buildcontext.Context, dockerfile string, tag string) (string, error)
}

// BuildImage streams the project files plus the generated Dockerfile to the
// daemon as a tar build context and returns the built tag.
func (dc *dockerClient) BuildImage(ctx context.Context, bctx buildcontext.Context, dockerfile string, tag string) (string, error) {
	var buf bytes.Buffer
	err := buildcontext.WriteTar(bctx, &buf, map[string][]byte{
		"Dockerfile": []byte(dockerfile),
	})
	if err != nil {
		return "", fmt.Errorf("write build context: %w", err)
	}

	buildTag, err := sdkimage.Build(
		ctx,
		&buf,
		tag,
		sdkimage.WithBuildClient(dc.client),
		sdkimage.WithBuildOptions(build.ImageBuildOptions{
			Dockerfile: "Dockerfile",
			Remove:     true, // remove intermediate containers
		}),
	)
	if err != nil {
		return "", fmt.Errorf("image build: %w", err)
	}

	return buildTag, nil
}
