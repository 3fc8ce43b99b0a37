package render

import (
	"context"
	"os"
	"path/filepath"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"quire/internal/assemble"
	"quire/internal/logging"
)

// renderPDF prints the HTML rendition to paginated PDF through headless
// Chrome. The HTML page is self-contained (figures embedded), so a file://
// navigation is enough.
func renderPDF(ctx context.Context, doc *assemble.ComposedDocument) ([]byte, error) {
	html, err := renderHTML(ctx, doc)
	if err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "quire-render-*")
	if err != nil {
		return nil, &RenderError{Format: FormatPDF, Err: err}
	}
	defer os.RemoveAll(tmpDir)

	htmlPath := filepath.Join(tmpDir, "report.html")
	if err := os.WriteFile(htmlPath, html, 0644); err != nil {
		return nil, &RenderError{Format: FormatPDF, Err: err}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	logging.New("render").Debug("printing report", "html", htmlPath)

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("file://"+htmlPath),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var printErr error
			pdf, _, printErr = page.PrintToPDF().
				WithPrintBackground(true).
				Do(ctx)
			return printErr
		}),
	)
	if err != nil {
		return nil, &RenderError{Format: FormatPDF, Err: err}
	}
	return pdf, nil
}
