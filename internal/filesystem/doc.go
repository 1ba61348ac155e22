// Package filesystem wraps os.Stat, os.Open and os.ReadFile with retry
// logic for NFS stale file handles.
//
// In container deployments the cache and database directories are often
// NFS- or bind-mounted. When the NFS server recycles a handle mid-read,
// the kernel surfaces ESTALE even though the file still exists; a fresh
// open almost always succeeds. StatWithRetry, OpenWithRetry and
// ReadFileWithRetry re-issue the operation with capped exponential
// backoff for exactly that error, and fail immediately on anything else.
//
// Defaults ([DefaultRetryConfig]) are 3 retries starting at 50ms and
// capped at 500ms:
//
//	data, err := filesystem.ReadFileWithRetry("/cache/uploads/rec.png", filesystem.DefaultRetryConfig())
//
// Retry metrics are labeled with the volume a path resolves to. Register
// the resolver once at startup:
//
//	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
//	    "cache":    cacheDir,
//	    "database": databaseDir,
//	}))
//
// The orchestrator uses these wrappers when reading retained source
// files for analysis, and the handlers use them when serving previews.
package filesystem
