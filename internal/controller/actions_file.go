package controller

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/danielpatrickdp/rfsnkernel/internal/kernel"
)

// #region read

func (c *Controller) execReadFile(state kernel.StateSnapshot, action kernel.Action, res *kernel.ExecResult) {
	target, err := resolvePath(state.WorkspaceRoot, action.Path)
	if err != nil {
		res.OK = false
		res.ErrorKind = kernel.ErrorIO
		res.Stderr = err.Error()
		return
	}

	f, err := os.Open(target)
	if err != nil {
		res.OK = false
		res.ErrorKind = kernel.ErrorIO
		res.Stderr = err.Error()
		return
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(f, c.config.MaxReadBytes+1)); err != nil {
		res.OK = false
		res.ErrorKind = kernel.ErrorIO
		res.Stderr = err.Error()
		return
	}

	data := buf.Bytes()
	truncated := int64(len(data)) > c.config.MaxReadBytes
	if truncated {
		data = data[:c.config.MaxReadBytes]
	}

	res.OK = true
	res.Stdout = string(data)
	res.StdoutTrunc = truncated
	res.BytesRead = int64(len(data))
}

// #endregion read

// #region write

// execWriteFile re-enforces the per-file byte cap at execution time (spec
// §4.2, "defense in depth") and writes atomically: a temp file in the same
// directory, then rename.
func (c *Controller) execWriteFile(state kernel.StateSnapshot, action kernel.Action, res *kernel.ExecResult) {
	content := []byte(action.Content)
	if int64(len(content)) > c.config.MaxWriteBytes {
		res.OK = false
		res.ErrorKind = kernel.ErrorWriteRefused
		res.Stderr = fmt.Sprintf("write cap exceeded: %d > %d", len(content), c.config.MaxWriteBytes)
		return
	}

	target, err := resolvePath(state.WorkspaceRoot, action.Path)
	if err != nil {
		res.OK = false
		res.ErrorKind = kernel.ErrorWriteRefused
		res.Stderr = err.Error()
		return
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		res.OK = false
		res.ErrorKind = kernel.ErrorIO
		res.Stderr = err.Error()
		return
	}

	tmp, err := os.CreateTemp(dir, ".rfsnkernel-write-*")
	if err != nil {
		res.OK = false
		res.ErrorKind = kernel.ErrorIO
		res.Stderr = err.Error()
		return
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		res.OK = false
		res.ErrorKind = kernel.ErrorIO
		res.Stderr = err.Error()
		return
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		res.OK = false
		res.ErrorKind = kernel.ErrorIO
		res.Stderr = err.Error()
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		res.OK = false
		res.ErrorKind = kernel.ErrorIO
		res.Stderr = err.Error()
		return
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		res.OK = false
		res.ErrorKind = kernel.ErrorIO
		res.Stderr = err.Error()
		return
	}

	res.OK = true
	res.BytesWritten = int64(len(content))
}

// #endregion write
