// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/AleutianAI/compilerlens/services/visualizer/datatypes"
	"github.com/gin-gonic/gin"
	"github.com/go-openapi/strfmt"
)

// Storage states reported by /health.
const (
	StorageOK          = "ok"
	StorageUnavailable = "unavailable"
	StorageDisabled    = "disabled"
)

const healthPingTimeout = 2 * time.Second

// HandleHealth handles GET /health. It always answers 200 while the process
// serves requests; dependency problems show up in the body.
func (h *Handlers) HandleHealth(c *gin.Context) {
	storage := StorageDisabled
	if h.storage != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()
		if err := h.storage.Ping(ctx); err != nil {
			h.logger.Warn("Storage ping failed", "error", err)
			storage = StorageUnavailable
		} else {
			storage = StorageOK
		}
	}

	c.JSON(http.StatusOK, datatypes.HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		Timestamp:     strfmt.DateTime(time.Now().UTC()),
		LLMConfigured: h.llmConfigured,
		ModelLoaded:   h.detector != nil && h.detector.Trained(),
		Storage:       storage,
	})
}
