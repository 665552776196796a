package ingestion_engine

import (
	"bytes"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfPageCount returns the physical page count of a PDF. Used to build the
// citation-range notice for drive-hosted PDFs. A variable so tests can
// substitute a fixed count instead of crafting real PDF structures.
var pdfPageCount = func(data []byte) (int, error) {
	pdfCtx, err := api.ReadContext(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, err
	}
	return pdfCtx.PageCount, nil
}
