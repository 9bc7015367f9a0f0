package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-choropleth/internal/choropleth"
	"github.com/joeblew999/plat-choropleth/internal/service"
)

// Problem maps a service or domain error to a Huma error response.
func Problem(err error) error {
	switch {
	case err == nil:
		return nil
	case eris.Is(err, service.ErrUnknownSession):
		return huma.Error404NotFound("session not found")
	case eris.Is(err, service.ErrRegionMissing), eris.Is(err, choropleth.ErrUnknownRegion):
		return huma.Error404NotFound("region not found")
	case eris.Is(err, service.ErrNotReady):
		return huma.Error503ServiceUnavailable("dataset is still loading")
	case eris.Is(err, service.ErrLoadFailed):
		return huma.Error503ServiceUnavailable("dataset failed to load")
	case eris.Is(err, choropleth.ErrNoLayer):
		return huma.Error503ServiceUnavailable("no regions rendered")
	}
	zap.L().Error("api: unexpected error", zap.Error(err))
	return huma.Error500InternalServerError("internal error")
}
