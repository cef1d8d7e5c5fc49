// Package ripper drives a full run: authenticate once, walk each
// collection page by page, make sure every downloadable item is owned by
// the account, download its payloads and pause between downloads.
//
// Everything runs sequentially on the caller's goroutine. The run stops at
// the first authentication, transport, download or filesystem error. A
// collection that does not exist is logged and skipped. A failed claim
// either stops the run or skips the item, depending on Options.OnPurchaseFailure.
//
// Usage:
//
//	r, err := ripper.NewFromConfig(cfg, log)
//	if err != nil {
//	    return err
//	}
//	result, err := r.Run(ctx, cfg.Adobe.SessionID)
package ripper
