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

import "github.com/shaneholloman/ultrasearch/internal/docid"

// Record is the per-job output a worker produces. A job that no
// extractor claims support for comes back with Unsupported=true and an
// empty Text, which is not a failure.
type Record struct {
	DocKey         docid.DocKey
	Text           string
	Lang           string
	ContentLang    string
	Truncated      bool
	BytesProcessed uint64
	Unsupported    bool
}
