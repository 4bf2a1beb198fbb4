package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// AmountParams are the query parameters of increment and decrement.
type AmountParams struct {
	Amount int64 `form:"amount" json:"amount"`
}

// ServerInterface is the set of counter endpoints.
type ServerInterface interface {
	// (GET /state)
	GetState(w http.ResponseWriter, r *http.Request)
	// (GET /counter)
	GetCounter(w http.ResponseWriter, r *http.Request)
	// (POST /counter/increment)
	PostCounterIncrement(w http.ResponseWriter, r *http.Request, params AmountParams)
	// (POST /counter/decrement)
	PostCounterDecrement(w http.ResponseWriter, r *http.Request, params AmountParams)
	// (POST /counter/reset)
	PostCounterReset(w http.ResponseWriter, r *http.Request)
	// (GET /journal)
	GetJournal(w http.ResponseWriter, r *http.Request)
	// (GET /sessions)
	GetSessions(w http.ResponseWriter, r *http.Request)
}

// MiddlewareFunc wraps a single endpoint handler.
type MiddlewareFunc func(http.Handler) http.Handler

// InvalidParamFormatError is reported when a query parameter cannot be
// bound.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// ServerInterfaceWrapper binds request parameters and calls the
// ServerInterface.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, h http.Handler) {
	for _, middleware := range siw.HandlerMiddlewares {
		h = middleware(h)
	}
	h.ServeHTTP(w, r)
}

// GetState operation middleware
func (siw *ServerInterfaceWrapper) GetState(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.GetState))
}

// GetCounter operation middleware
func (siw *ServerInterfaceWrapper) GetCounter(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.GetCounter))
}

// PostCounterIncrement operation middleware
func (siw *ServerInterfaceWrapper) PostCounterIncrement(w http.ResponseWriter, r *http.Request) {
	params, ok := siw.bindAmount(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.PostCounterIncrement(w, r, params)
	}))
}

// PostCounterDecrement operation middleware
func (siw *ServerInterfaceWrapper) PostCounterDecrement(w http.ResponseWriter, r *http.Request) {
	params, ok := siw.bindAmount(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.PostCounterDecrement(w, r, params)
	}))
}

// PostCounterReset operation middleware
func (siw *ServerInterfaceWrapper) PostCounterReset(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.PostCounterReset))
}

// GetJournal operation middleware
func (siw *ServerInterfaceWrapper) GetJournal(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.GetJournal))
}

// GetSessions operation middleware
func (siw *ServerInterfaceWrapper) GetSessions(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.GetSessions))
}

func (siw *ServerInterfaceWrapper) bindAmount(w http.ResponseWriter, r *http.Request) (AmountParams, bool) {
	var params AmountParams

	// ------------- Required query parameter "amount" -------------
	err := runtime.BindQueryParameter("form", true, true, "amount", r.URL.Query(), &params.Amount)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "amount", Err: err})
		return params, false
	}
	return params, true
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions mounts si on a chi router.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/state", wrapper.GetState)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/counter", wrapper.GetCounter)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/counter/increment", wrapper.PostCounterIncrement)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/counter/decrement", wrapper.PostCounterDecrement)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/counter/reset", wrapper.PostCounterReset)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/journal", wrapper.GetJournal)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/sessions", wrapper.GetSessions)
	})

	return r
}
