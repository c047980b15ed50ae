/*
Copyright © 2026 the demgen authors.
This file is part of demgen.

demgen is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

demgen is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with demgen.  If not, see <http://www.gnu.org/licenses/>.*/

package demgenutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/demgen/cloud"
)

// uploadRetries is the number of times a failed upload is retried.
const uploadRetries = 5

type uploader struct {
	// files is a set of file path pairs. The first of each pair
	// is a local file path and the second is the blob storage
	// key it was uploaded to.
	files [][2]string
	err   error

	// dir is the local staging directory and dest is the blob
	// storage location it mirrors.
	dir, dest string
}

// maybeUpload checks whether the given output directory refers to
// a blob storage location. If it does, then a temporary directory
// is returned. The files written there are uploaded to blob storage
// when the uploadOutput method is run.
func (u *uploader) maybeUpload(dir string) string {
	if u.err != nil {
		return ""
	}
	if !cloud.IsBlob(dir) {
		return dir
	}
	u.dest = dir
	if u.dir == "" {
		u.dir, u.err = os.MkdirTemp("", "demgen")
		if u.err != nil {
			return ""
		}
	}
	return u.dir
}

// uploadOutput copies the given local files to the blob storage
// location, if there is one, and returns their final addresses.
// If any upload fails, the objects uploaded so far are deleted.
func (u *uploader) uploadOutput(ctx context.Context, files []string, log logrus.FieldLogger) ([]string, error) {
	if u.err != nil {
		return nil, u.err
	}
	if u.dest == "" {
		return files, nil
	}
	loc, err := cloud.ParseLocation(u.dest)
	if err != nil {
		return nil, err
	}
	bucket, err := cloud.OpenBucket(ctx, loc.Bucket)
	if err != nil {
		return nil, fmt.Errorf("demgen: opening bucket to upload output: %v", err)
	}
	defer bucket.Close()

	addresses := make([]string, len(files))
	for i, f := range files {
		key := loc.Key(filepath.Base(f))
		op := func() error { return cloud.UploadFile(ctx, bucket, key, f) }
		err := backoff.RetryNotify(op, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uploadRetries),
			func(err error, d time.Duration) {
				log.WithError(err).WithField("retry_in", d).Warn("upload failed")
			})
		if err != nil {
			for _, done := range u.files {
				if derr := bucket.Delete(ctx, done[1]); derr != nil {
					log.WithError(derr).WithField("key", done[1]).Warn("removing partial upload")
				}
			}
			u.files = nil
			return nil, fmt.Errorf("demgen: uploading %s to %s: %v", f, u.dest, err)
		}
		u.files = append(u.files, [2]string{f, key})
		addresses[i] = loc.Bucket + "/" + key
		log.WithField("address", addresses[i]).Info("uploaded")
	}
	return addresses, nil
}

// cleanup removes the local staging directory, if there is one.
func (u *uploader) cleanup() error {
	if u.dir == "" {
		return nil
	}
	return os.RemoveAll(u.dir)
}
