package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"lojasocial/internal/domain"
	apperror "lojasocial/internal/errors"
	"lojasocial/internal/pkg/logger"
)

// maxBodyBytes limita o tamanho dos payloads JSON aceites.
const maxBodyBytes = 1 << 20

// ServiceResponse processa erros de serviço e envia respostas padronizadas ao cliente.
func ServiceResponse(log logger.Logger, w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if data != nil {
			if jsonErr := json.NewEncoder(w).Encode(data); jsonErr != nil {
				log.Error("Falha ao codificar JSON de resposta", jsonErr)
			}
		}
		return
	}

	// TRATAMENTO DE ERROS
	status, category, message := apperror.MapToHTTPStatus(err)

	if status >= 500 {
		log.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		log.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{
			"path":   r.URL.Path,
			"method": r.Method,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(domain.ErrorResponse{Code: status, Category: category, Message: message})
}

// DecodeJSON lê o corpo do pedido para dst. Campos desconhecidos são rejeitados.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return decode(w, r, dst, false)
}

// DecodeOptionalJSON é como DecodeJSON, mas um corpo vazio deixa dst intacto.
func DecodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return decode(w, r, dst, true)
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) error {
	if r.Body == nil {
		if optional {
			return nil
		}
		return apperror.NewValidationError("Payload inválido. Verifique o formato JSON.")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return apperror.NewValidationError("Payload inválido. Verifique o formato JSON.")
	}
	return nil
}
