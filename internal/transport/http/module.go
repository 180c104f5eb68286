package http

import (
	"go.uber.org/fx"

	checkouttransport "github.com/Additional-Code/storefront/internal/transport/http/checkout"
	ordertransport "github.com/Additional-Code/storefront/internal/transport/http/order"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	checkouttransport.Module,
	ordertransport.Module,
)
