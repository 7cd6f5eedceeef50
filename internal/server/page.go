package server

const chatPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>MCP Documentation Assistant</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; display: flex; justify-content: center; }
  .card { max-width: 760px; width: 94%; margin: 2rem 0; background: #1e293b; border-radius: 12px; padding: 2rem; box-shadow: 0 25px 50px rgba(0,0,0,0.4); display: flex; flex-direction: column; }
  h1 { font-size: 1.5rem; margin-bottom: 0.25rem; color: #f8fafc; }
  .subtitle { color: #94a3b8; margin-bottom: 1.25rem; }
  #log { flex: 1; min-height: 320px; max-height: 60vh; overflow-y: auto; display: flex; flex-direction: column; gap: 0.75rem; margin-bottom: 1rem; }
  .msg { padding: 0.75rem 1rem; border-radius: 8px; line-height: 1.5; white-space: pre-wrap; }
  .user { background: #334155; align-self: flex-end; max-width: 80%; }
  .bot { background: #0f172a; border: 1px solid #334155; align-self: flex-start; max-width: 90%; }
  .sources { margin-top: 0.5rem; font-size: 0.8rem; color: #64748b; }
  form { display: flex; gap: 0.5rem; }
  input { flex: 1; padding: 0.75rem; border-radius: 8px; border: 1px solid #334155; background: #0f172a; color: #e2e8f0; font-size: 1rem; }
  button { padding: 0.75rem 1.25rem; border: 0; border-radius: 8px; background: #38bdf8; color: #0f172a; font-weight: 600; cursor: pointer; }
  button:disabled { opacity: 0.5; cursor: wait; }
  a { color: #38bdf8; text-decoration: none; }
  .endpoint { font-family: "SF Mono", monospace; font-size: 0.85rem; color: #a5b4fc; }
  footer { margin-top: 1rem; font-size: 0.8rem; color: #64748b; }
</style>
</head>
<body>
<div class="card">
  <h1>MCP Documentation Assistant</h1>
  <p class="subtitle">Ask questions about the <a href="https://modelcontextprotocol.io">Model Context Protocol</a>. Answers are grounded in the official documentation.</p>
  <div id="log"></div>
  <form id="chat">
    <input id="message" autocomplete="off" placeholder="What transports does MCP support?" autofocus>
    <button type="submit" id="send">Ask</button>
  </form>
  <footer>
    <a href="/mcp" class="endpoint">/mcp</a> MCP Streamable HTTP &middot;
    <a href="/health" class="endpoint">/health</a> Health check
  </footer>
</div>
<script>
  const log = document.getElementById("log");
  const form = document.getElementById("chat");
  const input = document.getElementById("message");
  const send = document.getElementById("send");

  function add(text, cls, sources) {
    const div = document.createElement("div");
    div.className = "msg " + cls;
    div.textContent = text;
    if (sources && sources.length) {
      const s = document.createElement("div");
      s.className = "sources";
      s.textContent = "Sources: " + [...new Set(sources.map(x => x.path))].join(", ");
      div.appendChild(s);
    }
    log.appendChild(div);
    log.scrollTop = log.scrollHeight;
  }

  form.addEventListener("submit", async (e) => {
    e.preventDefault();
    const message = input.value.trim();
    if (!message) return;
    add(message, "user");
    input.value = "";
    send.disabled = true;
    try {
      const res = await fetch("/chat", {
        method: "POST",
        headers: { "Content-Type": "application/json" },
        body: JSON.stringify({ message }),
      });
      const data = await res.json();
      add(data.response, "bot", data.sources);
    } catch (err) {
      add("I encountered an error while processing your request. Please try again.", "bot");
    } finally {
      send.disabled = false;
      input.focus();
    }
  });
</script>
</body>
</html>`
