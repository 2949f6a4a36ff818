package ssdp

import (
	"bytes"
	"text/template"
)

// ServiceTarget is the SSDP service type the responder advertises.
const ServiceTarget = "roku:ecp"

// TargetAll is the wildcard search target that matches every device.
const TargetAll = "ssdp:all"

var searchResponseTemplate = template.Must(template.New("search-response").Parse(
	"HTTP/1.1 200 OK\r\n" +
		"Cache-Control: max-age = {{.MaxAge}}\r\n" +
		"ST: " + ServiceTarget + "\r\n" +
		"Location: http://{{.IP}}:{{.Port}}/\r\n" +
		"USN: uuid:" + ServiceTarget + ":{{.USN}}\r\n" +
		"\r\n"))

var aliveNotifyTemplate = template.Must(template.New("alive-notify").Parse(
	"NOTIFY * HTTP/1.1\r\n" +
		"HOST: {{.Group}}\r\n" +
		"Cache-Control: max-age = {{.MaxAge}}\r\n" +
		"Location: http://{{.IP}}:{{.Port}}/\r\n" +
		"NT: " + ServiceTarget + "\r\n" +
		"NTS: ssdp:alive\r\n" +
		"USN: uuid:" + ServiceTarget + ":{{.USN}}\r\n" +
		"\r\n"))

type payloadData struct {
	USN    string
	IP     string
	Port   int
	Group  string
	MaxAge int
}

func renderPayload(t *template.Template, data payloadData) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
