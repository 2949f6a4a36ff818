package ecp

import (
	"bytes"
	"text/template"
)

// App is one entry of the emulated channel list.
type App struct {
	ID      string
	Type    string
	Version string
	Name    string
}

// defaultApps is the static channel list every emulated device reports.
var defaultApps = []App{
	{ID: "12", Type: "appl", Version: "4.1.218", Name: "Netflix"},
	{ID: "13", Type: "appl", Version: "4.10.13", Name: "Prime Video"},
	{ID: "837", Type: "appl", Version: "1.0.80", Name: "YouTube"},
	{ID: "2285", Type: "appl", Version: "6.29.0", Name: "Hulu"},
	{ID: "31012", Type: "menu", Version: "1.9.28", Name: "FandangoNOW Movies & TV"},
}

// DefaultApps returns the channel list every emulated device reports.
func DefaultApps() []App {
	return append([]App(nil), defaultApps...)
}

// homeApp is reported as active until a channel is launched.
var homeApp = App{ID: "", Type: "", Version: "", Name: "Roku"}

var deviceDescriptionTemplate = template.Must(template.New("device-description").Parse(
	`<?xml version="1.0" encoding="UTF-8" ?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <specVersion>
    <major>1</major>
    <minor>0</minor>
  </specVersion>
  <device>
    <deviceType>urn:roku-com:device:player:1-0</deviceType>
    <friendlyName>{{.FriendlyName}}</friendlyName>
    <manufacturer>Roku</manufacturer>
    <manufacturerURL>http://www.roku.com/</manufacturerURL>
    <modelDescription>Roku Streaming Player Network Media</modelDescription>
    <modelName>Roku 4</modelName>
    <modelNumber>4400X</modelNumber>
    <modelURL>http://www.roku.com/</modelURL>
    <serialNumber>{{.USN}}</serialNumber>
    <UDN>uuid:{{.DeviceID}}</UDN>
    <serviceList>
      <service>
        <serviceType>urn:roku-com:service:ecp:1</serviceType>
        <serviceId>urn:roku-com:serviceId:ecp1-0</serviceId>
        <controlURL/>
        <eventSubURL/>
        <SCPDURL>ecp_SCPD.xml</SCPDURL>
      </service>
    </serviceList>
  </device>
</root>
`))

var deviceInfoTemplate = template.Must(template.New("device-info").Parse(
	`<?xml version="1.0" encoding="UTF-8" ?>
<device-info>
  <udn>{{.DeviceID}}</udn>
  <serial-number>{{.USN}}</serial-number>
  <device-id>{{.USN}}</device-id>
  <vendor-name>Roku</vendor-name>
  <model-number>4400X</model-number>
  <model-name>Roku 4</model-name>
  <model-region>US</model-region>
  <wifi-mac>b0:a7:37:96:4d:fb</wifi-mac>
  <ethernet-mac>b0:a7:37:96:4d:fa</ethernet-mac>
  <network-type>ethernet</network-type>
  <user-device-name>{{.FriendlyName}}</user-device-name>
  <software-version>7.5.0</software-version>
  <software-build>09021</software-build>
  <secure-device>true</secure-device>
  <language>en</language>
  <country>US</country>
  <locale>en_US</locale>
  <time-zone>US/Pacific</time-zone>
  <time-zone-offset>-480</time-zone-offset>
  <power-mode>PowerOn</power-mode>
  <supports-suspend>false</supports-suspend>
  <developer-enabled>true</developer-enabled>
  <search-enabled>true</search-enabled>
  <voice-search-enabled>false</voice-search-enabled>
  <notifications-enabled>false</notifications-enabled>
  <headphones-connected>false</headphones-connected>
</device-info>
`))

var appListTemplate = template.Must(template.New("apps").Parse(
	`<?xml version="1.0" encoding="UTF-8" ?>
<apps>
{{- range .Apps}}
  <app id="{{.ID}}" type="{{.Type}}" version="{{.Version}}">{{.Name}}</app>
{{- end}}
</apps>
`))

var activeAppTemplate = template.Must(template.New("active-app").Parse(
	`<?xml version="1.0" encoding="UTF-8" ?>
<active-app>
{{- if .App.ID}}
  <app id="{{.App.ID}}" type="{{.App.Type}}" version="{{.App.Version}}">{{.App.Name}}</app>
{{- else}}
  <app>{{.App.Name}}</app>
{{- end}}
</active-app>
`))

type templateData struct {
	USN          string
	DeviceID     string
	FriendlyName string
	Apps         []App
	App          App
}

func renderTemplate(t *template.Template, data templateData) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
