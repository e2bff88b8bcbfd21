package lookup

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"lojasocial/internal/domain"
	apperror "lojasocial/internal/errors"
)

// productPath segue o formato da API v2 do Open Food Facts.
const productPath = "/api/v2/product/{barcode}.json"

// offResponse é o subconjunto da resposta que nos interessa.
type offResponse struct {
	Code    string `json:"code"`
	Status  int    `json:"status"`
	Product struct {
		ProductName string `json:"product_name"`
		Brands      string `json:"brands"`
		ImageURL    string `json:"image_url"`
	} `json:"product"`
}

// Client consulta uma base externa de produtos por código de barras.
type Client struct {
	http *resty.Client
}

// NewClient cria o cliente com o URL base e o timeout configurados.
func NewClient(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "LojaSocial/1.0")
	return &Client{http: c}
}

// Lookup devolve uma sugestão de produto (não gravada) para o código de barras.
// Categoria por omissão: Alimentar, já que a base externa é de produtos alimentares.
func (c *Client) Lookup(ctx context.Context, barcode string) (domain.Product, error) {
	var body offResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("barcode", barcode).
		SetResult(&body).
		Get(productPath)
	if err != nil {
		return domain.Product{}, apperror.NewInternalError("Falha ao consultar catálogo externo", err)
	}

	if resp.StatusCode() == http.StatusNotFound || (resp.IsSuccess() && body.Status == 0) {
		return domain.Product{}, apperror.NewNotFoundError(fmt.Sprintf("Código de barras %s desconhecido no catálogo externo.", barcode))
	}
	if resp.IsError() {
		return domain.Product{}, apperror.NewInternalError(
			fmt.Sprintf("Catálogo externo respondeu %d", resp.StatusCode()), nil)
	}

	return domain.Product{
		Barcode:  barcode,
		Name:     strings.TrimSpace(body.Product.ProductName),
		Brand:    firstBrand(body.Product.Brands),
		Category: domain.CategoryAlimentar,
		ImageURL: body.Product.ImageURL,
	}, nil
}

// O campo brands vem como lista separada por vírgulas ("Marca A, Marca B").
func firstBrand(brands string) string {
	first, _, _ := strings.Cut(brands, ",")
	return strings.TrimSpace(first)
}
