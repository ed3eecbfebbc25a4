package api

import (
	"net/http"
)

// playerPageHTML is a minimal browser surface: it renders websocket frames
// and posts commands back to the API.
const playerPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Bridge and Torch</title>
<style>
  body { font-family: system-ui, sans-serif; background: #101522; color: #e8e8ee; margin: 0; padding: 24px; }
  h1 { font-size: 20px; margin: 0 0 16px; }
  .banks { display: grid; grid-template-columns: 1fr 80px 1fr; gap: 12px; align-items: start; }
  .bank { background: #1b2236; border-radius: 8px; padding: 12px; min-height: 160px; }
  .bank h2 { font-size: 13px; text-transform: uppercase; opacity: .7; margin: 0 0 8px; }
  .bridge { text-align: center; font-size: 28px; padding-top: 48px; }
  .actor { display: block; width: 100%; margin: 6px 0; padding: 8px; border: 1px solid #34405e;
           background: #232c45; color: inherit; border-radius: 6px; cursor: pointer; text-align: left; }
  .actor.selected { border-color: #f5b942; background: #3a3220; }
  .actor:disabled { opacity: .45; cursor: default; }
  .hud { margin: 16px 0; display: flex; gap: 24px; flex-wrap: wrap; }
  .bar { height: 8px; background: #232c45; border-radius: 4px; overflow: hidden; width: 240px; }
  .bar div { height: 100%; background: #f5b942; width: 0; transition: width .3s; }
  .controls button { margin-right: 8px; padding: 8px 14px; }
  #status { margin: 12px 0; min-height: 20px; }
  #status.advisory { color: #ff8f70; }
  #verdict { padding: 10px; border-radius: 6px; display: none; }
  #verdict.success { display: block; background: #1b4332; }
  #verdict.over_goal { display: block; background: #5c2b1a; }
  ol { padding-left: 20px; }
</style>
</head>
<body>
<h1>Bridge and Torch</h1>
<div class="banks">
  <div class="bank"><h2>Start (camp)</h2><div id="start"></div></div>
  <div class="bridge" id="torch">&#128293;</div>
  <div class="bank"><h2>Destination (safe)</h2><div id="destination"></div></div>
</div>
<div class="hud">
  <div>Elapsed: <b id="elapsed">0</b> / <span id="goal">0</span> min</div>
  <div class="bar"><div id="progress"></div></div>
  <div>Phase: <span id="phase">idle</span></div>
</div>
<div class="controls">
  <button data-op="cross">Cross</button>
  <button data-op="undo">Undo</button>
  <button data-op="reset">Reset</button>
  <button data-op="solution">Show solution</button>
</div>
<div id="status"></div>
<div id="verdict"></div>
<ol id="history"></ol>
<script>
(function () {
  var last = 0, status = "", advisoryTimer = null, actors = {};
  var $ = function (id) { return document.getElementById(id); };

  function post(path, body) {
    return fetch(path, {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: body ? JSON.stringify(body) : null
    });
  }

  document.querySelectorAll("[data-op]").forEach(function (b) {
    b.onclick = function () { post("/" + b.dataset.op); };
  });

  function render(s) {
    if (s.seq < last) return;
    last = s.seq;
    var busy = s.phase === "transitioning" || s.phase === "autoplaying";
    $("start").innerHTML = ""; $("destination").innerHTML = "";
    Object.keys(s.positions).sort().forEach(function (id) {
      var b = document.createElement("button");
      b.className = "actor" + (s.selection.indexOf(id) >= 0 ? " selected" : "");
      b.textContent = actors[id] || id;
      b.disabled = busy || s.positions[id] !== s.torch_side;
      b.onclick = function () { post("/select", { actor_id: id }); };
      $(s.positions[id]).appendChild(b);
    });
    $("torch").style.textAlign = s.torch_side === "start" ? "left" : "right";
    $("elapsed").textContent = s.elapsed;
    $("goal").textContent = s.goal;
    $("progress").style.width = Math.round(s.progress_ratio * 100) + "%";
    $("phase").textContent = s.phase;
    $("history").innerHTML = "";
    (s.history || []).forEach(function (m) {
      var li = document.createElement("li");
      li.textContent = m.ids.map(function (id) { return actors[id] || id; }).join(" & ") +
        " (" + m.from + " → " + m.to + ", +" + m.duration + " min)";
      $("history").appendChild(li);
    });
    status = s.status;
    if (!advisoryTimer) { $("status").textContent = status; $("status").className = ""; }
    var v = $("verdict");
    v.className = s.verdict ? s.verdict.outcome : "";
    if (!s.verdict) v.textContent = "";
  }

  function advise(a) {
    $("status").textContent = a.message;
    $("status").className = "advisory";
    clearTimeout(advisoryTimer);
    advisoryTimer = setTimeout(function () {
      advisoryTimer = null;
      $("status").textContent = status;
      $("status").className = "";
    }, a.duration / 1e6);
  }

  function verdict(v) {
    $("verdict").className = v.outcome;
    $("verdict").textContent = v.outcome === "success"
      ? "Success! You matched the ideal time of " + v.goal + " minutes."
      : "Everyone crossed in " + v.elapsed + " minutes. Can you make it in " + v.goal + "?";
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onmessage = function (msg) {
      var f = JSON.parse(msg.data);
      if (f.type === "snapshot") render(f.snapshot);
      else if (f.type === "advisory") advise(f.advisory);
      else if (f.type === "verdict") verdict(f.verdict);
    };
    ws.onclose = function () { setTimeout(connect, 2000); };
  }

  fetch("/roster").then(function (r) { return r.json(); }).then(function (list) {
    list.forEach(function (a) { actors[a.id] = a.label + " (" + a.cost + " min)"; });
  }).finally(connect);
})();
</script>
</body>
</html>
`

func uiHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(playerPageHTML))
}
