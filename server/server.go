// Package server contains misc server utilities.
package server

import (
	"encoding/json"
	"fmt"
	"go/types"
	"log"
	"net/http"
	"strconv"
)

// HumanPayload is a struct containing the basic types and their
// encoded-at-rest forms, such that the only "generic" field a
// handler deals with is the type tag
type HumanPayload struct {
	// T holds the type of the data
	T types.BasicKind

	// Bool holds a boolean
	Bool bool

	// Int holds an int
	Int int

	// Float holds a float64
	Float float64

	// String holds a string
	String string

	// Buf holds raw bytes
	Buf []byte
}

// EncodeAndRespond converts the payload to a JSON body of
// {'<tag>': value} and writes it to w
func (hp *HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	switch hp.T {
	case types.Bool:
		obj := BoolT{Bool: hp.Bool}
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(obj)
		if err != nil {
			fstr := fmt.Sprintf("error encoding bool data to json %q", err)
			log.Println(fstr)
			http.Error(w, fstr, http.StatusInternalServerError)
		}
	case types.Int:
		obj := IntT{Int: hp.Int}
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(obj)
		if err != nil {
			fstr := fmt.Sprintf("error encoding int data to json %q", err)
			log.Println(fstr)
			http.Error(w, fstr, http.StatusInternalServerError)
		}
	case types.Float64:
		obj := FloatT{F64: hp.Float}
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(obj)
		if err != nil {
			fstr := fmt.Sprintf("error encoding float data to json %q", err)
			log.Println(fstr)
			http.Error(w, fstr, http.StatusInternalServerError)
		}
	case types.String:
		obj := StrT{Str: hp.String}
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(obj)
		if err != nil {
			fstr := fmt.Sprintf("error encoding string data to json %q", err)
			log.Println(fstr)
			http.Error(w, fstr, http.StatusInternalServerError)
		}
	case types.UntypedNil:
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(hp.Buf)))
		w.WriteHeader(http.StatusOK)
		w.Write(hp.Buf)
	default:
		fstr := fmt.Sprintf("unknown type tag %v in response payload", hp.T)
		log.Println(fstr)
		http.Error(w, fstr, http.StatusInternalServerError)
	}
}

// FloatT is a struct with a single field, F64, used for json [de]serialization
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single field, Int, used for json [de]serialization
type IntT struct {
	Int int `json:"int"`
}

// StrT is a struct with a single field, Str, used for json [de]serialization
type StrT struct {
	Str string `json:"str"`
}

// BoolT is a struct with a single field, Bool, used for json [de]serialization
type BoolT struct {
	Bool bool `json:"bool"`
}
