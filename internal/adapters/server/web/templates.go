package web

import "html/template"

// parseTemplates parses every page template.
func parseTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"prev": func(n int) int { return n - 1 },
		"next": func(n int) int { return n + 1 },
		"fieldError": func(errs map[string]string, field string) string {
			return errs[field]
		},
	}
	return template.New("pages").Funcs(funcs).Parse(pagesHTML)
}

const pagesHTML = `
{{define "head"}}<!doctype html>
<html lang="es">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>{{.Title}}</title>
    <link rel="stylesheet" href="/static/app.css" />
  </head>
  <body>
    <header class="header">
      <a class="brand" href="/tareways">TaskFlow</a>
      <nav>
        <a href="/tareways">Tablero</a>
        <a href="/tareways/export">Exportar</a>
        <a href="/privacy">Privacidad</a>
      </nav>
    </header>
    {{if .Flash}}<div class="flash" role="status" aria-live="polite" aria-atomic="true">{{.Flash}}</div>{{end}}
    <main class="container">
{{end}}

{{define "foot"}}
    </main>
  </body>
</html>
{{end}}

{{define "card"}}
<article class="card" id="item-{{.ID}}">
  <header class="card-head">
    <h3 class="card-title">{{.Title}}</h3>
    <span class="card-id" title="{{.ID}}">#{{.ShortID}}</span>
  </header>
  {{if .Description}}<p class="card-desc">{{.Description}}</p>{{end}}
  {{if .DueLabel}}<p class="card-due">Vence: {{.DueLabel}}</p>{{end}}
  <p class="card-meta">Creado: {{.CreatedLabel}}{{if .UpdatedLabel}} · Actualizado: {{.UpdatedLabel}}{{end}}</p>
</article>
{{end}}

{{define "board"}}{{template "head" .}}
<section class="new-task">
  <h2>Nueva tarea</h2>
  <form method="post" action="/tareways" novalidate>
    <label for="titulo">Título</label>
    <input id="titulo" name="{{.Fields.Title}}" maxlength="100" required value="{{.Form.Title}}"{{if eq .Focus "titulo"}} autofocus{{end}} />
    {{with fieldError .FieldErrors "titulo"}}<span class="field-error">{{.}}</span>{{end}}
    <label for="descripcion">Descripción</label>
    <textarea id="descripcion" name="{{.Fields.Description}}" maxlength="500"{{if eq .Focus "descripcion"}} autofocus{{end}}>{{.Form.Description}}</textarea>
    {{with fieldError .FieldErrors "descripcion"}}<span class="field-error">{{.}}</span>{{end}}
    <label for="fechaVencimiento">Fecha de vencimiento</label>
    <input id="fechaVencimiento" type="date" name="{{.Fields.DueDate}}" required value="{{.Form.DueDate}}"{{if eq .Focus "fechaVencimiento"}} autofocus{{end}} />
    {{with fieldError .FieldErrors "fechaVencimiento"}}<span class="field-error">{{.}}</span>{{end}}
    <button type="submit">Agregar</button>
  </form>
</section>

<section class="board">
{{$highlight := .Highlight}}
{{range .Board.Columns}}
  <section class="column{{if eq .Status $highlight}} highlight{{end}}" id="column-{{.Status}}" aria-label="{{.Name}}">
    <h2>{{.Name}} <span class="count">{{.Count}}</span></h2>
    {{$status := .Status}}
    {{range .Items}}
      <div class="item">
        {{template "card" .}}
        <div class="actions">
          <form method="post" action="/tareways/items/{{.ID}}/advance"><button type="submit">Avanzar</button></form>
          {{$id := .ID}}
          {{range .Targets}}
          <form method="post" action="/tareways/items/{{$id}}/move">
            <input type="hidden" name="status" value="{{.}}" />
            <button type="submit">Mover a {{.DisplayName}}</button>
          </form>
          {{end}}
          <form method="post" action="/tareways/items/{{.ID}}/delete"><button type="submit" class="danger">Eliminar</button></form>
        </div>
      </div>
    {{else}}
      <p class="empty">Sin elementos</p>
    {{end}}
    {{if .ShowPager}}
    <nav class="pager" aria-label="Páginas de {{.Name}}">
      {{if .HasPrev}}<form method="post" action="/tareways/pages/{{$status}}"><input type="hidden" name="page" value="{{prev .Page}}" /><button type="submit">Anterior</button></form>{{end}}
      <span>Página {{.Page}} de {{.TotalPages}}</span>
      {{if .HasNext}}<form method="post" action="/tareways/pages/{{$status}}"><input type="hidden" name="page" value="{{next .Page}}" /><button type="submit">Siguiente</button></form>{{end}}
    </nav>
    {{end}}
  </section>
{{end}}
</section>

<section class="transfer">
  <h2>Importar</h2>
  <form method="post" action="/tareways/import" enctype="multipart/form-data">
    <input type="file" name="file" accept="application/json,.json" />
    <label><input type="checkbox" name="confirm" value="yes" /> Reemplazar la lista actual</label>
    <button type="submit">Importar</button>
  </form>
  <form method="post" action="/privacy/clear">
    <input type="hidden" name="from" value="board" />
    <label><input type="checkbox" name="confirm" value="yes" /> Confirmar</label>
    <button type="submit" class="danger">Borrar todos los datos</button>
  </form>
</section>
{{template "foot" .}}{{end}}

{{define "confirm"}}{{template "head" .}}
<section class="confirm">
  <h2>{{.Confirm.Heading}}</h2>
  {{with .Confirm.Item}}{{template "card" .}}{{end}}
  <p>{{.Confirm.Message}}</p>
  <form method="post" action="{{.Confirm.Action}}">
    <input type="hidden" name="confirm" value="yes" />
    <button type="submit" class="danger">Eliminar</button>
    <a href="/tareways">Cancelar</a>
  </form>
</section>
{{template "foot" .}}{{end}}

{{define "privacy"}}{{template "head" .}}
<section class="privacy">
  <h2>Privacidad</h2>
  <p>Las tareas se guardan solo en este equipo. Puede eliminar todos los datos guardados en cualquier momento.</p>
  <form method="post" action="/privacy/clear">
    <input type="hidden" name="from" value="privacy" />
    <label><input type="checkbox" name="confirm" value="yes" /> Entiendo que esta acción no se puede deshacer</label>
    <button type="submit" class="danger">Borrar todos los datos</button>
  </form>
</section>
{{template "foot" .}}{{end}}

{{define "error"}}{{template "head" .}}
<section class="error">
  <h2>Error.</h2>
  <p>Ocurrió un error al procesar su solicitud.</p>
  {{if .RequestID}}<p><strong>Request ID:</strong> <code>{{.RequestID}}</code></p>{{end}}
</section>
{{template "foot" .}}{{end}}
`

const appCSS = `
:root { color-scheme: light dark; font-family: system-ui, sans-serif; }
body { margin: 0; }
.header { display: flex; gap: 1rem; align-items: center; padding: .75rem 1.5rem; border-bottom: 1px solid #8884; }
.header nav { display: flex; gap: .75rem; }
.brand { font-weight: 700; text-decoration: none; }
.container { padding: 1rem 1.5rem; }
.flash { margin: .75rem 1.5rem; padding: .5rem .75rem; border-radius: 6px; background: #2b6cb022; }
.new-task form { display: grid; gap: .35rem; max-width: 32rem; }
.field-error { color: #c53030; font-size: .85rem; }
.board { display: grid; grid-template-columns: repeat(3, 1fr); gap: 1rem; margin: 1.5rem 0; }
.column { border: 1px solid #8884; border-radius: 8px; padding: .75rem; }
.column.highlight { border-color: #2b6cb0; }
.count { font-size: .8rem; opacity: .7; }
.card { border-radius: 6px; padding: .5rem; background: #8881; }
.card-head { display: flex; justify-content: space-between; gap: .5rem; }
.card-title { margin: 0; font-size: 1rem; }
.card-id, .card-meta { font-size: .75rem; opacity: .7; }
.actions { display: flex; flex-wrap: wrap; gap: .25rem; margin: .35rem 0 .75rem; }
.actions form { margin: 0; }
.danger { color: #c53030; }
.pager { display: flex; gap: .5rem; align-items: center; justify-content: center; }
.empty { opacity: .6; font-style: italic; }
`
