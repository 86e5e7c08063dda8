// Package blob uploads finished workbooks to Azure Blob Storage.
package blob

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"rateios/internal/log"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	azb "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// api is the subset of *azblob.Client used by Store.
type api interface {
	CreateContainer(ctx context.Context, containerName string, o *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error)
	UploadFile(ctx context.Context, containerName, blobName string, file *os.File, o *azblob.UploadFileOptions) (azblob.UploadFileResponse, error)
	URL() string
}

// Options selects how the store authenticates. A connection string wins
// over a service URL; the service URL uses the default Azure credential
// chain (environment, managed identity, Azure CLI).
type Options struct {
	ConnectionString string
	ServiceURL       string
	Container        string
}

// Store uploads files into one container.
type Store struct {
	client    api
	container string
	logger    *log.Logger
}

// New creates a Store from opts.
func New(opts Options, logger *log.Logger) (*Store, error) {
	if opts.Container == "" {
		return nil, errors.New("blob container is required")
	}

	var client *azblob.Client
	var err error
	switch {
	case opts.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(opts.ConnectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("create blob client from connection string: %w", err)
		}
	case opts.ServiceURL != "":
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("create default azure credential: %w", err)
		}
		client, err = azblob.NewClient(opts.ServiceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("create blob client: %w", err)
		}
	default:
		return nil, errors.New("AZURE_STORAGE_CONNECTION_STRING or AZURE_BLOB_SERVICE_URL is required")
	}
	return newStore(client, opts.Container, logger), nil
}

func newStore(client api, container string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	return &Store{client: client, container: container, logger: logger.WithComponent(log.ComponentBlob)}
}

// EnsureContainer creates the container unless it already exists.
func (s *Store) EnsureContainer(ctx context.Context) error {
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("create container %s: %w", s.container, err)
	}
	return nil
}

// UploadFiles uploads each path as {prefix}/{base name} and returns the
// blob URL per local path. Failed uploads are joined into the error; the
// remaining files are still attempted.
func (s *Store) UploadFiles(ctx context.Context, prefix string, paths []string) (map[string]string, error) {
	if err := s.EnsureContainer(ctx); err != nil {
		return nil, err
	}

	locations := make(map[string]string, len(paths))
	var errs []error
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		loc, err := s.uploadFile(ctx, prefix, p)
		if err != nil {
			s.logger.ErrorContext(ctx, "Upload failed", log.FieldFile, p, log.FieldError, err.Error())
			errs = append(errs, err)
			continue
		}
		s.logger.DebugContext(ctx, "Uploaded workbook", log.FieldFile, p, "location", loc)
		locations[p] = loc
	}
	s.logger.InfoContext(ctx, "Workbooks uploaded",
		"uploaded", len(locations), "failed", len(paths)-len(locations), "container", s.container)
	return locations, errors.Join(errs...)
}

func (s *Store) uploadFile(ctx context.Context, prefix, p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", p, err)
	}
	defer f.Close()

	name := BlobName(prefix, p)
	ct := xlsxContentType
	_, err = s.client.UploadFile(ctx, s.container, name, f, &azblob.UploadFileOptions{
		HTTPHeaders: &azb.HTTPHeaders{BlobContentType: &ct},
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return s.location(name), nil
}

// BlobName is the object name for a local file under prefix.
func BlobName(prefix, localPath string) string {
	base := filepath.Base(localPath)
	if prefix == "" {
		return base
	}
	return path.Join(prefix, base)
}

func (s *Store) location(name string) string {
	parts := strings.Split(name, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.TrimSuffix(s.client.URL(), "/") + "/" + s.container + "/" + strings.Join(parts, "/")
}
