// Package fscms provides a flat-file content store: posts kept as JSON documents
// under a root folder, with a metadata index for fast filtering.
//
// Layout of a root:
//
//	root/
//	  contents/<type>/<id>.json   one document per post
//	  metadata/posts.json         id -> {id, type, status, published, language}
//	  metadata/sequence.json      highest id ever issued
//
// The documents are the source of truth. The posts index is rebuilt from them
// when it is missing or malformed, or on RepairIndex.
//
// Basic usage:
//
//	repo, _ := fscms.Open("/var/lib/site", fscms.WithCaller(7))
//	defer repo.Close()
//
//	// Add a post; id, status, creator and timestamps are assigned
//	post, _ := repo.AddPost(ctx, "article", map[string]any{"title": "Hello"})
//
//	// Read it back (the zero Post when absent)
//	p, _ := repo.GetPost(ctx, post.ID)
//
//	// Replace it wholesale
//	p.Status = fscms.StatusPublished
//	p.Fields["title"] = "Hello, world"
//	repo.UpdatePost(ctx, p)
//
//	// Filter; type, status and language go through the index
//	drafts, _ := repo.ListPosts(ctx, fscms.Filter{"type": "article", "status": "draft"})
//
//	// Maintenance
//	repo.RepairIndex(ctx)        // rebuild metadata/posts.json
//	repo.Export(ctx, w)          // zstd-compressed tar of the root
//
// A Repository assumes a single writer. Use OpenOrNull where an unusable root
// should degrade to an empty, read-only store instead of failing.
package fscms
