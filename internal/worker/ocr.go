// Copyright 2026 The Ultrasearch Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package worker

import (
	"bytes"
	"os"
	"os/exec"
	"sync"
)

// rasterExts are the image types the OCR backend will claim.
var rasterExts = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "tif": true, "tiff": true,
	"bmp": true, "gif": true, "webp": true,
}

// ocrExtractor shells out to tesseract for raster images. It claims a job
// only when OCR is explicitly enabled, the input is a raster type, and the
// tesseract binary is actually resolvable — a missing binary makes the job
// Unsupported rather than a failure.
type ocrExtractor struct {
	lookOnce sync.Once
	binary   string
}

func newOCRExtractor() *ocrExtractor { return &ocrExtractor{} }

func (o *ocrExtractor) Name() string { return "ocr" }

func (o *ocrExtractor) tesseractPath() string {
	o.lookOnce.Do(func() {
		if path, err := exec.LookPath("tesseract"); err == nil {
			o.binary = path
		}
	})
	return o.binary
}

func (o *ocrExtractor) Supports(ctx Context) bool {
	if !ctx.OCREnabled || !rasterExts[ctx.Ext] {
		return false
	}
	return o.tesseractPath() != ""
}

func (o *ocrExtractor) Extract(ctx Context, maxBytes, maxChars uint64) (string, bool, uint64, error) {
	fi, err := os.Stat(ctx.Path)
	if err != nil {
		return "", false, 0, err
	}
	if uint64(fi.Size()) > maxBytes {
		// OCR can't read a partial image; an oversized input yields an
		// empty, truncated record instead of feeding tesseract half a file.
		return "", true, 0, nil
	}

	var stdout bytes.Buffer
	cmd := exec.Command(o.tesseractPath(), ctx.Path, "stdout")
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", false, 0, err
	}

	text, charTrunc := truncateCharsUTF8(stdout.String(), maxChars)
	return text, charTrunc, uint64(fi.Size()), nil
}
