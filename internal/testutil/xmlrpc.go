package testutil

import (
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"sort"
	"strconv"
	"strings"
)

// MethodCall is a decoded XML-RPC request.
type MethodCall struct {
	Method string
	Params []any
}

// DecodeMethodCall parses an XML-RPC methodCall document into generic Go
// values: string, int, bool, float64, []any, map[string]any and nil.
func DecodeMethodCall(r io.Reader) (MethodCall, error) {
	dec := xml.NewDecoder(r)
	var call MethodCall
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return call, nil
		}
		if err != nil {
			return call, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "methodName":
			var name string
			if err := dec.DecodeElement(&name, &se); err != nil {
				return call, err
			}
			call.Method = strings.TrimSpace(name)
		case "value":
			v, err := decodeValue(dec)
			if err != nil {
				return call, err
			}
			call.Params = append(call.Params, v)
		}
	}
}

func decodeValue(dec *xml.Decoder) (any, error) {
	var text strings.Builder
	var out any
	typed := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.CharData:
			text.Write(t)
		case xml.StartElement:
			typed = true
			if out, err = decodeTyped(dec, t); err != nil {
				return nil, err
			}
		case xml.EndElement:
			if !typed {
				return text.String(), nil
			}
			return out, nil
		}
	}
}

func decodeTyped(dec *xml.Decoder, se xml.StartElement) (any, error) {
	switch se.Name.Local {
	case "array":
		items := []any{}
		for {
			tok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			switch t := tok.(type) {
			case xml.StartElement:
				if t.Name.Local == "value" {
					v, err := decodeValue(dec)
					if err != nil {
						return nil, err
					}
					items = append(items, v)
				}
			case xml.EndElement:
				if t.Name.Local == "array" {
					return items, nil
				}
			}
		}
	case "struct":
		m := map[string]any{}
		var name string
		for {
			tok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			switch t := tok.(type) {
			case xml.StartElement:
				switch t.Name.Local {
				case "name":
					if err := dec.DecodeElement(&name, &t); err != nil {
						return nil, err
					}
				case "value":
					v, err := decodeValue(dec)
					if err != nil {
						return nil, err
					}
					m[strings.TrimSpace(name)] = v
				}
			case xml.EndElement:
				if t.Name.Local == "struct" {
					return m, nil
				}
			}
		}
	case "nil":
		return nil, dec.Skip()
	}

	var s string
	if err := dec.DecodeElement(&s, &se); err != nil {
		return nil, err
	}
	switch se.Name.Local {
	case "int", "i4", "i8":
		return strconv.Atoi(strings.TrimSpace(s))
	case "boolean":
		return strings.TrimSpace(s) == "1", nil
	case "double":
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	default:
		return s, nil
	}
}

// EncodeResponse renders v as an XML-RPC methodResponse.
func EncodeResponse(v any) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><methodResponse><params><param>`)
	encodeValue(&b, v)
	b.WriteString(`</param></params></methodResponse>`)
	return b.String()
}

// EncodeFault renders an XML-RPC fault. code may be an int or a string,
// both shapes are seen in the wild.
func EncodeFault(code any, message string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><methodResponse><fault>`)
	encodeValue(&b, map[string]any{"faultCode": code, "faultString": message})
	b.WriteString(`</fault></methodResponse>`)
	return b.String()
}

func encodeValue(b *strings.Builder, v any) {
	b.WriteString("<value>")
	switch x := v.(type) {
	case nil:
		b.WriteString("<boolean>0</boolean>")
	case bool:
		if x {
			b.WriteString("<boolean>1</boolean>")
		} else {
			b.WriteString("<boolean>0</boolean>")
		}
	case int:
		fmt.Fprintf(b, "<int>%d</int>", x)
	case int64:
		fmt.Fprintf(b, "<int>%d</int>", x)
	case float64:
		fmt.Fprintf(b, "<double>%s</double>", strconv.FormatFloat(x, 'f', -1, 64))
	case string:
		fmt.Fprintf(b, "<string>%s</string>", html.EscapeString(x))
	case []string:
		b.WriteString("<array><data>")
		for _, s := range x {
			encodeValue(b, s)
		}
		b.WriteString("</data></array>")
	case []int:
		b.WriteString("<array><data>")
		for _, i := range x {
			encodeValue(b, i)
		}
		b.WriteString("</data></array>")
	case []any:
		b.WriteString("<array><data>")
		for _, item := range x {
			encodeValue(b, item)
		}
		b.WriteString("</data></array>")
	case []map[string]any:
		b.WriteString("<array><data>")
		for _, item := range x {
			encodeValue(b, item)
		}
		b.WriteString("</data></array>")
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("<struct>")
		for _, k := range keys {
			fmt.Fprintf(b, "<member><name>%s</name>", html.EscapeString(k))
			encodeValue(b, x[k])
			b.WriteString("</member>")
		}
		b.WriteString("</struct>")
	default:
		fmt.Fprintf(b, "<string>%s</string>", html.EscapeString(fmt.Sprint(x)))
	}
	b.WriteString("</value>")
}
