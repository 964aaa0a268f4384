package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/catalog/api/transport"
	"github.com/fastygo/catalog/pkg/httpcontext"
	"github.com/fastygo/catalog/repository"
	productUC "github.com/fastygo/catalog/usecase/product"
)

type ProductHandler struct {
	baseHandler
	uc *productUC.UseCase
}

func NewProductHandler(uc *productUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List products
// @Tags products
// @Param page query int false "1-based page"
// @Param page_size query int false "items per page (max 100)"
// @Param sort_by query string false "name, price or created_at"
// @Param descending query bool false "reverse order"
// @Router /api/v1/products [get]
func (h *ProductHandler) List(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	query, err := transport.ParseProductListQuery(ctx.QueryArgs())
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}

	items, total, err := h.uc.ListProducts(stdCtx, repository.ProductFilter{
		SortBy:     query.SortBy,
		Descending: query.Descending,
		Limit:      query.PageSize,
		Offset:     query.Offset(),
	})
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(items, transport.PageMeta{
		Page:     query.Page,
		PageSize: query.PageSize,
		Total:    total,
	}))
}

// @Summary Get product by ID
// @Tags products
// @Router /api/v1/products/{id} [get]
func (h *ProductHandler) Get(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	product, err := h.uc.GetProduct(stdCtx, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, product)
}

// @Summary Create product
// @Tags products
// @Router /api/v1/products [post]
func (h *ProductHandler) Create(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.ProductRequest
	if err := decode(ctx, &req); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	product, err := h.uc.CreateProduct(stdCtx, req.ToDomain(""))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, product)
}

// @Summary Update product
// @Tags products
// @Router /api/v1/products/{id} [put]
func (h *ProductHandler) Update(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.ProductRequest
	if err := decode(ctx, &req); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	product, err := h.uc.UpdateProduct(stdCtx, req.ToDomain(pathParam(ctx, "id")))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, product)
}

// @Summary Delete product
// @Tags products
// @Router /api/v1/products/{id} [delete]
func (h *ProductHandler) Delete(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.DeleteProduct(stdCtx, pathParam(ctx, "id")); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}
