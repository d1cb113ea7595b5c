// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package static holds the stylesheet served under /static/.
package static

import "embed"

//go:embed style.css
var FS embed.FS
