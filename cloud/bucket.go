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

// Package cloud provides access to the blob storage locations that
// generated rasters can be delivered to.
package cloud

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"
)

// IsBlob returns whether the given path refers to a blob storage
// location rather than a local path.
func IsBlob(path string) bool {
	return strings.HasPrefix(path, "gs://") || strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "file://")
}

// Location is a blob storage address split into the bucket and the
// key prefix within it.
type Location struct {
	// Bucket is in the format 'provider://name'.
	Bucket string

	// Prefix is the key prefix, without a leading slash.
	Prefix string
}

// Key returns the key of the named object within the location.
func (l Location) Key(name string) string {
	return path.Join(l.Prefix, name)
}

// String returns the full address of the location.
func (l Location) String() string {
	if l.Prefix == "" {
		return l.Bucket
	}
	return l.Bucket + "/" + l.Prefix
}

// ParseLocation splits a blob address such as 'gs://bucket/dir/sub' into
// bucket 'gs://bucket' and prefix 'dir/sub'. A file address without a
// host, such as 'file:///tmp/out', uses the whole path as the bucket
// directory.
func ParseLocation(address string) (Location, error) {
	u, err := url.Parse(address)
	if err != nil {
		return Location{}, fmt.Errorf("cloud: parsing location %q: %w", address, err)
	}
	switch u.Scheme {
	case "file", "gs", "s3":
	default:
		return Location{}, fmt.Errorf("cloud: invalid provider %q in %q", u.Scheme, address)
	}
	if u.Scheme == "file" && u.Host == "" {
		return Location{Bucket: "file://" + u.Path}, nil
	}
	if u.Host == "" {
		return Location{}, fmt.Errorf("cloud: missing bucket name in %q", address)
	}
	return Location{
		Bucket: u.Scheme + "://" + u.Host,
		Prefix: strings.Trim(u.Path, "/"),
	}, nil
}

// OpenBucket returns the blob storage bucket specified by bucketName,
// where bucketName must be in the format 'provider://name' where provider
// is the name of the storage provider and name is the name of the bucket.
// The currently accepted storage providers are "file" for the local filesystem
// (e.g., for testing), "gs" for Google Cloud Storage, and "s3" for AWS S3.
// For "file", name is a directory, which is created if necessary.
func OpenBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	u, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("cloud: opening bucket: %w", err)
	}
	switch u.Scheme {
	case "file":
		dir := u.Host + u.Path
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("cloud: creating bucket directory: %w", err)
		}
		return fileblob.OpenBucket(dir, nil)
	case "gs":
		return gsBucket(ctx, u.Hostname())
	case "s3":
		return s3Bucket(ctx, u.Hostname())
	default:
		return nil, fmt.Errorf("cloud: invalid provider %q", u.Scheme)
	}
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	// See here for information on credentials:
	// https://cloud.google.com/docs/authentication/getting-started
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("cloud: finding Google Cloud credentials: %w", err)
	}
	c, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, fmt.Errorf("cloud: creating Google Cloud client: %w", err)
	}
	return gcsblob.OpenBucket(ctx, c, name, nil)
}

// s3Bucket opens an s3 storage bucket. It assumes the following
// environment variables are set: AWS_REGION, AWS_ACCESS_KEY_ID, and
// AWS_SECRET_ACCESS_KEY.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "eu-central-2"
	}
	c := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	s, err := session.NewSession(c)
	if err != nil {
		return nil, fmt.Errorf("cloud: creating AWS session: %w", err)
	}
	return s3blob.OpenBucket(ctx, s, name, nil)
}
