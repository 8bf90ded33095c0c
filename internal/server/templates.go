package server

// Page templates are embedded so the binary serves the UI without a
// templates directory on disk.

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>SwarmPAL Dashboards</title>
    <style>{{.CSS}}</style>
</head>
<body>
    <div class="header">
        <h1>🛰️ SwarmPAL Dashboards</h1>
        <div class="subtitle">Swarm satellite data processing quicklooks</div>
    </div>

    <div class="cards">
        {{range .Dashboards}}
        <a class="card" href="{{.Href}}">
            <h3>{{.Title}}</h3>
            <p>{{.Href}}</p>
        </a>
        {{end}}
    </div>

    {{if .Bulletins}}
    <div class="panel">
        <h2>Space weather bulletins</h2>
        {{range .Bulletins}}
        <div class="bulletin">
            <a href="{{.Link}}" target="_blank" rel="noopener">{{.Title}}</a>
            <span class="bulletin-date">{{.Published.Format "2006-01-02"}}</span>
            {{if .Summary}}<p>{{.Summary}}</p>{{end}}
        </div>
        {{end}}
    </div>
    {{end}}

    <div class="footer">
        <p>SwarmPAL processor {{.Version}} | Data source: VirES for Swarm</p>
    </div>
</body>
</html>`

const dashboardTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>{{.CSS}}</style>
</head>
<body data-api="{{.APIBase}}">
    <div class="header">
        <h1>{{.Title}}</h1>
        <div class="subtitle"><a href="/">All dashboards</a> | <span id="status-badge" class="badge">idle</span></div>
    </div>

    <div class="layout">
        <div class="panel controls">
            <h2>Parameters</h2>
            {{.WidgetsHTML}}
            <button id="fetch-btn" class="primary" onclick="fetchData()">Fetch and process</button>
            <div class="export-links">
                Export:
                <a href="{{.APIBase}}/export?format=parquet">Parquet</a>
                <a href="{{.APIBase}}/export?format=json">JSON</a>
                <a href="{{.APIBase}}/export?format=json.gz">JSON&nbsp;(gzip)</a>
            </div>
        </div>

        <div class="panel figure">
            <h2>Figure</h2>
            <img id="plot" src="{{.APIBase}}/plot" alt="dashboard figure">
            <div id="player" class="player hidden">
                <button id="player-toggle" onclick="togglePlayer()">Play</button>
                <input id="player-slider" type="range" min="0" max="0" value="0" oninput="scrubFrame(this.value)">
                <span id="player-label">frame 0</span>
            </div>
        </div>
    </div>

    <div class="panel">
        <h2>Data</h2>
        <div id="data-view"></div>
    </div>

    <div class="panel">
        <h2>Activity log</h2>
        <div id="activity-log" class="log"></div>
    </div>

    <div class="footer">
        <p>SwarmPAL processor {{.Version}}</p>
    </div>

    <script>{{.JS}}</script>
</body>
</html>`

const pageCSS = `
body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    line-height: 1.6;
    color: #333;
    max-width: 1200px;
    margin: 0 auto;
    padding: 20px;
    background-color: #f8f9fa;
}
.header {
    background: linear-gradient(135deg, #1a2a6c 0%, #2c3e50 100%);
    color: white;
    padding: 25px 30px;
    border-radius: 10px;
    margin-bottom: 25px;
}
.header h1 { margin: 0; font-size: 1.9em; }
.header .subtitle { opacity: 0.85; margin-top: 6px; }
.header a { color: #aed6f1; }
.badge { padding: 2px 10px; border-radius: 10px; background: #7f8c8d; font-size: 0.85em; }
.badge.busy { background: #f39c12; }
.badge.idle { background: #27ae60; }
.cards {
    display: grid;
    grid-template-columns: repeat(auto-fit, minmax(280px, 1fr));
    gap: 20px;
    margin-bottom: 25px;
}
.card {
    background: white;
    padding: 20px;
    border-radius: 8px;
    box-shadow: 0 2px 10px rgba(0,0,0,0.1);
    border-left: 4px solid #2c3e50;
    text-decoration: none;
    color: #333;
}
.card h3 { margin-top: 0; color: #2c3e50; }
.layout {
    display: grid;
    grid-template-columns: 340px 1fr;
    gap: 20px;
    margin-bottom: 20px;
}
.panel {
    background: white;
    padding: 20px;
    border-radius: 8px;
    box-shadow: 0 2px 10px rgba(0,0,0,0.1);
    margin-bottom: 20px;
}
.panel h2 {
    margin-top: 0;
    color: #2c3e50;
    border-bottom: 2px solid #2c3e50;
    padding-bottom: 5px;
    font-size: 1.1em;
}
.widget { margin-bottom: 12px; }
.widget-label { display: block; font-size: 0.85em; color: #555; margin-bottom: 3px; }
.widget input[type=number], .widget input[type=datetime-local], .widget select {
    width: 100%;
    padding: 5px;
    border: 1px solid #ccc;
    border-radius: 4px;
    box-sizing: border-box;
}
.radio-option { margin-right: 12px; }
.upload-name { font-size: 0.8em; color: #27ae60; display: block; margin-top: 3px; }
button.primary {
    width: 100%;
    padding: 10px;
    margin-top: 8px;
    background: #2c3e50;
    color: white;
    border: none;
    border-radius: 5px;
    cursor: pointer;
    font-size: 1em;
}
button.primary:hover { background: #1a2a6c; }
.export-links { margin-top: 12px; font-size: 0.9em; }
.export-links a { margin-left: 6px; color: #2c3e50; }
.figure img { max-width: 100%; border: 1px solid #eee; border-radius: 4px; }
.player { display: flex; align-items: center; gap: 10px; margin-top: 10px; }
.player.hidden { display: none; }
.player input[type=range] { flex: 1; }
.player button { padding: 4px 14px; border: 1px solid #2c3e50; background: white; border-radius: 4px; cursor: pointer; }
.log {
    font-family: 'SF Mono', Consolas, monospace;
    font-size: 0.82em;
    max-height: 240px;
    overflow-y: auto;
    background: #fcfcfc;
    border: 1px solid #eee;
    border-radius: 4px;
    padding: 10px;
}
.notice { color: #7f8c8d; font-style: italic; padding: 20px; text-align: center; }
.snippet { margin-top: 14px; }
.snippet summary { cursor: pointer; color: #2c3e50; font-weight: bold; }
.snippet pre { background: #f4f4f4; padding: 12px; border-radius: 5px; overflow-x: auto; }
table.data-view { border-collapse: collapse; width: 100%; margin: 10px 0; font-size: 0.85em; }
table.data-view th, table.data-view td { border: 1px solid #ddd; padding: 6px 10px; text-align: left; }
table.data-view th { background-color: #f8f9fa; }
.footer { text-align: center; color: #666; font-size: 0.85em; margin-top: 20px; }
.bulletin { margin-bottom: 12px; }
.bulletin a { color: #2c3e50; font-weight: bold; }
.bulletin-date { color: #999; margin-left: 8px; font-size: 0.85em; }
.bulletin p { margin: 4px 0 0; color: #555; font-size: 0.9em; }
`

const dashboardJS = `
const api = document.body.dataset.api;
let lastFetchCount = -1;
let playerKeys = [];

function setWidget(name, value) {
    const body = new URLSearchParams({name: name, value: value});
    fetch(api + '/widgets', {method: 'POST', body: body})
        .then(resp => { if (!resp.ok) refreshLog(); });
}

function fetchData() {
    fetch(api + '/fetch', {method: 'POST'}).then(() => refreshLog());
}

function uploadFile(input) {
    if (!input.files.length) return;
    const form = new FormData();
    form.append('file', input.files[0]);
    fetch(api + '/upload', {method: 'POST', body: form}).then(() => refreshLog());
}

function togglePlayer() {
    fetch(api + '/player/toggle', {method: 'POST'})
        .then(resp => resp.json()).then(updatePlayer);
}

function scrubFrame(index) {
    const key = playerKeys[index];
    if (key === undefined) return;
    const body = new URLSearchParams({frame: key});
    fetch(api + '/player/frame', {method: 'POST', body: body})
        .then(resp => resp.json()).then(updatePlayer);
}

function updatePlayer(state) {
    playerKeys = state.keys || [];
    const panel = document.getElementById('player');
    panel.classList.toggle('hidden', !state.enabled || playerKeys.length < 2);
    const slider = document.getElementById('player-slider');
    slider.max = Math.max(playerKeys.length - 1, 0);
    const idx = playerKeys.indexOf(state.current);
    if (idx >= 0) slider.value = idx;
    document.getElementById('player-toggle').textContent = state.playing ? 'Pause' : 'Play';
    document.getElementById('player-label').textContent = 'frame ' + state.current;
}

function refreshLog() {
    fetch(api + '/log').then(resp => resp.text()).then(html => {
        document.getElementById('activity-log').innerHTML = html;
    });
}

function refreshView() {
    fetch(api + '/view').then(resp => resp.text()).then(html => {
        document.getElementById('data-view').innerHTML = html;
    });
}

function poll() {
    fetch(api + '/state').then(resp => resp.json()).then(state => {
        const badge = document.getElementById('status-badge');
        badge.textContent = state.busy ? 'working' : (state.has_data ? 'ready' : 'idle');
        badge.className = 'badge ' + (state.busy ? 'busy' : 'idle');
        updatePlayer(state.player);
        document.getElementById('plot').src = api + '/plot?t=' + Date.now();
        if (state.fetch_count !== lastFetchCount) {
            lastFetchCount = state.fetch_count;
            refreshView();
        }
    }).catch(() => {});
    refreshLog();
}

poll();
setInterval(poll, 1500);
`
