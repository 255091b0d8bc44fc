//go:build !sonic

package ods

import "github.com/goccy/go-json"

var jsonMarshal = json.Marshal
var jsonUnmarshal = json.Unmarshal
