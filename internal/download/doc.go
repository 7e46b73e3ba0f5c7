// Package download delivers media files to the local file system.
//
// # Pipeline
//
// A Pipeline runs each job through an explicit state machine:
//
//	START -> NATIVE_SAVE  (only when a Saver is configured)
//	           success          -> DONE
//	           user cancelled   -> DONE, no error
//	           other failure    -> DIRECT_FETCH
//	START -> DIRECT_FETCH (GET the URL; credentials only for trusted origins)
//	           success          -> DONE
//	           network / non-2xx -> PROXY_FETCH
//	PROXY_FETCH           (GET proxy?url=&name= on the API origin)
//	           success          -> DONE
//	           failure          -> FAILED
//
// Strategies run strictly one after another. Local write failures are
// terminal at any step since no other strategy can fix them.
//
// At most one job runs per URL; a second Download call for the same URL
// while the first is running returns immediately with Job.Skipped set.
//
// # Basic Usage
//
//	pipeline := download.NewPipeline(download.Options{
//	    Client:        client,
//	    ProxyEndpoint: settings.ProxyURL(),
//	    Dir:           settings.DownloadsPath,
//	    OnProgress: func(event download.ProgressEvent) {
//	        fmt.Println(event.Message)
//	    },
//	})
//
//	job, err := pipeline.Download(ctx, "https://cdn.example.com/a/b/c.jpg", "")
//
// # File Names
//
// The saved name comes from the Content-Disposition header, then the last
// URL path segment if it has an extension, then download.<ext>. Existing
// files are never overwritten; a " (1)" style suffix is added instead.
//
// # Concurrency
//
// DownloadAll fans out over an errgroup limited by Options.Concurrency
// (settings.MaxConcurrentDownloads). Individual failures are reported and
// do not stop the remaining downloads.
package download
