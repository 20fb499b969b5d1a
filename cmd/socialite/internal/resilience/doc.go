// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resilience runs multi-step client operations with rollback.
//
// # Overview
//
// A Saga executes ordered steps and, when one fails, runs the compensations
// of the steps that already completed in reverse order. Optimistic is the
// two-step saga every state holder uses for "change locally, then confirm
// with the backend": the local change is undone when the request fails.
//
// Nothing here retries. A failed request surfaces to the caller once, after
// local state has been restored.
package resilience
