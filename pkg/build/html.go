package build

import (
	"bytes"
	"html/template"
	"strings"
)

var shell = template.Must(template.New("shell").Parse(`<!doctype html>
<html>
  <head>
    <meta charset="UTF-8" />
{{- range .Styles}}
    <link rel="stylesheet" href="{{.}}" />
{{- end}}
{{- range .Scripts}}
    <script type="module" src="{{.}}"></script>
{{- end}}
  </head>
  <body>
    <div id="{{.Name}}-root"></div>
  </body>
</html>
`))

// RenderHTML returns the HTML document that mounts widget name from its scripts
// and stylesheets, given as paths relative to baseURL.
func RenderHTML(name, baseURL string, scripts, styles []string) (string, error) {
	data := struct {
		Name    string
		Scripts []string
		Styles  []string
	}{
		Name:    name,
		Scripts: assetURLs(baseURL, scripts),
		Styles:  assetURLs(baseURL, styles),
	}

	var buf bytes.Buffer
	if err := shell.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func assetURLs(baseURL string, files []string) []string {
	base := strings.TrimSuffix(baseURL, "/")
	urls := make([]string, 0, len(files))
	for _, f := range files {
		urls = append(urls, base+"/"+strings.TrimPrefix(f, "/"))
	}
	return urls
}
