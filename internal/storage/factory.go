package storage

import (
	"context"
	"fmt"

	"github.com/arkilian/readbench/internal/dfs"
	benchErrors "github.com/arkilian/readbench/internal/errors"
	"github.com/arkilian/readbench/pkg/types"
)

// New creates the backend for kind. The hdfs backend connects to the
// configured DFS driver here; a failed connection is an OpenError.
func New(ctx context.Context, kind types.BackendKind, opts Options) (Backend, error) {
	switch kind {
	case types.BackendFileRead:
		return NewBufferedBackend(opts), nil
	case types.BackendFileMmap:
		return NewMmapBackend(opts), nil
	case types.BackendHDFS:
		fs, err := dfs.Connect(ctx, opts.DFS)
		if err != nil {
			return nil, benchErrors.NewOpenError(benchErrors.CodeConnectFailed,
				fmt.Sprintf("failed to connect to dfs driver %q", opts.DFS.Driver), err)
		}
		return NewDFSBackend(fs, opts), nil
	default:
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidArgument,
			fmt.Sprintf("unknown backend type %q", kind))
	}
}
