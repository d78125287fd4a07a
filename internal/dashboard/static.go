package dashboard

// indexHTML is the dashboard's single static page: it polls the JSON
// endpoints every five seconds and renders counters, the recent-anomaly
// feed, and the type distribution client-side. There is no server-side
// templating — the page is plain HTML/JS served as-is.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Anomaly Detection Engine</title>
<style>
  body { font-family: -apple-system, Helvetica, Arial, sans-serif; background: #0d1117; color: #c9d1d9; margin: 2rem; }
  h1 { font-size: 1.3rem; color: #58a6ff; }
  .cards { display: flex; gap: 1rem; flex-wrap: wrap; margin-bottom: 1.5rem; }
  .card { background: #161b22; border: 1px solid #30363d; border-radius: 6px; padding: 1rem 1.5rem; min-width: 160px; }
  .card .value { font-size: 1.6rem; font-weight: 600; }
  .card .label { font-size: 0.8rem; color: #8b949e; }
  table { border-collapse: collapse; width: 100%; margin-top: 0.5rem; }
  th, td { text-align: left; padding: 0.4rem 0.8rem; border-bottom: 1px solid #30363d; font-size: 0.85rem; }
  #status { font-size: 0.8rem; color: #8b949e; }
</style>
</head>
<body>
<h1>Anomaly Detection Engine</h1>
<div id="status">connecting...</div>
<div class="cards" id="cards"></div>
<h2>Recent anomalies</h2>
<table id="anomalies"><thead><tr><th>Transaction</th><th>Score</th><th>Type</th><th>Detected</th></tr></thead><tbody></tbody></table>
<script>
function fmtCard(label, value) {
  return '<div class="card"><div class="value">' + value + '</div><div class="label">' + label + '</div></div>';
}

async function refresh() {
  try {
    const [metrics, anomalies] = await Promise.all([
      fetch('/api/metrics').then(r => r.json()),
      fetch('/api/anomalies').then(r => r.json()),
    ]);

    document.getElementById('status').textContent = 'last updated ' + new Date().toLocaleTimeString();

    const cards = document.getElementById('cards');
    cards.innerHTML = [
      fmtCard('Total transactions', metrics.total_transactions),
      fmtCard('Total anomalies', metrics.total_anomalies),
      fmtCard('Anomaly rate', (metrics.anomaly_rate * 100).toFixed(2) + '%'),
      fmtCard('Avg processing (ms)', metrics.avg_processing_time_ms.toFixed(2)),
      fmtCard('Throughput (tx/s)', metrics.processing_rate_per_sec.toFixed(2)),
      fmtCard('Active detectors', metrics.active_detectors),
    ].join('');

    const body = document.querySelector('#anomalies tbody');
    body.innerHTML = (anomalies.anomalies || []).slice(0, 25).map(a =>
      '<tr><td>' + a.transaction_id + '</td><td>' + a.score.toFixed(3) + '</td><td>' + a.type + '</td><td>' + new Date(a.timestamp).toLocaleTimeString() + '</td></tr>'
    ).join('');
  } catch (e) {
    document.getElementById('status').textContent = 'disconnected: ' + e;
  }
}

refresh();
setInterval(refresh, 5000);
</script>
</body>
</html>
`
