package upload

import (
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// pageCount reads the page count for display. Unreadable documents report 0;
// the service decides whether the file is acceptable.
func pageCount(path string) (pages int) {
	disableConfigDir.Do(api.DisableConfigDir)
	defer func() {
		if r := recover(); r != nil {
			debugLog("[upload] page count %s panicked: %v", path, r)
			pages = 0
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	n, err := api.PageCount(f, model.NewDefaultConfiguration())
	if err != nil {
		debugLog("[upload] page count %s: %v", path, err)
		return 0
	}
	return n
}
