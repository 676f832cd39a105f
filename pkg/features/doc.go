// Package features provides higher-level abstractions built on the
// attune reactive core.
//
// # Subsystems
//
//   - resource: async data loading with generation-based race safety,
//     retry, preloading and state matching
//   - resource/fetch: ready-made fetchers for HTTP and S3 sources
//   - confsig: configuration files exposed as signals, with validation
//     and rollback on bad reloads
//
// Each subsystem is in its own sub-package and can be imported
// independently:
//
//	import "github.com/attune-dev/attune/pkg/features/resource"
//	import "github.com/attune-dev/attune/pkg/features/confsig"
//
// See the individual package documentation for detailed usage examples.
package features
