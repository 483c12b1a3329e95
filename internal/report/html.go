/*
 * Copyright 2022 The Gremlins Authors
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package report

import (
	"bytes"
	"html/template"
)

var htmlReportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Mutation report — {{.Module}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 0.4rem 0.6rem; text-align: left; }
tr.lived, tr.suspicious, tr.timed-out { background: #fdecea; }
tr.killed { background: #eafaf1; }
</style>
</head>
<body>
<h1>Mutation report — {{.Module}}</h1>
<p>{{len .Mutants}} mutants.</p>
<table>
<tr><th>pk</th><th>file</th><th>line</th><th>type</th><th>status</th></tr>
{{range .Mutants}}<tr class="{{.CSSClass}}"><td>{{.ID}}</td><td>{{.Filename}}</td><td>{{.Line}}</td><td>{{.Type}}</td><td>{{.Status}}</td></tr>
{{end}}
</table>
</body>
</html>
`))

type htmlRow struct {
	CachedMutant
}

func (r htmlRow) CSSClass() string {
	switch r.Status {
	case "LIVED":
		return "lived"
	case "SUSPICIOUS":
		return "suspicious"
	case "TIMED OUT":
		return "timed-out"
	case "KILLED":
		return "killed"
	default:
		return ""
	}
}

type htmlReportData struct {
	Module  string
	Mutants []htmlRow
}

// HTML renders mutants as a static HTML page, one row per mutant, for
// browsing a run's results without a terminal.
func HTML(module string, mutants []CachedMutant) ([]byte, error) {
	data := htmlReportData{Module: module}
	for _, m := range mutants {
		data.Mutants = append(data.Mutants, htmlRow{m})
	}

	var buf bytes.Buffer
	if err := htmlReportTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
