package dashboard

// Static assets for the dashboard.
// These are embedded as strings for simplicity.

// getStaticAsset returns a static asset by name.
// Returns the content, content type, and whether the asset was found.
func getStaticAsset(name string) (content string, contentType string, ok bool) {
	switch name {
	case "style.css":
		return cssStyles, "text/css", true
	case "app.js":
		return jsApp, "application/javascript", true
	case "favicon.ico":
		return "", "image/x-icon", false // No favicon embedded
	default:
		return "", "", false
	}
}

// cssStyles contains the custom styles not covered by Tailwind.
const cssStyles = `
.mono {
    font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, monospace;
}

.btn {
    padding: 0.25rem 0.75rem;
    border-radius: 0.375rem;
    background-color: #374151;
    font-size: 0.875rem;
}

.btn:hover {
    background-color: #4b5563;
}

.grid-canvas {
    width: 100%;
    image-rendering: pixelated;
    background-color: #030712;
    border: 1px solid #374151;
}

.swatch {
    display: inline-block;
    width: 0.75rem;
    height: 0.75rem;
    border-radius: 2px;
}

.extinct {
    opacity: 0.4;
    text-decoration: line-through;
}
`

// jsApp polls the frame endpoint and draws the grid. Each critter is a
// square in its species color with a notch on the side it faces.
const jsApp = `
(function () {
    const arena = document.getElementById('arena');
    if (!arena) return;

    const canvas = document.getElementById('grid');
    const ctx = canvas.getContext('2d');
    const cell = 20;
    canvas.width = Number(canvas.dataset.width) * cell;
    canvas.height = Number(canvas.dataset.height) * cell;

    document.querySelectorAll('#census li').forEach(li => {
        li.querySelector('.swatch').style.backgroundColor = li.dataset.color;
    });

    // Headings arrive in degrees clockwise from up.
    const notch = [[0.5, 0], [1, 0], [1, 0.5], [1, 1], [0.5, 1], [0, 1], [0, 0.5], [0, 0]];

    function draw(frame) {
        ctx.fillStyle = '#030712';
        ctx.fillRect(0, 0, canvas.width, canvas.height);
        for (const c of frame.cells) {
            const x = c.x * cell, y = c.y * cell;
            ctx.fillStyle = c.color;
            ctx.fillRect(x + 1, y + 1, cell - 2, cell - 2);
            const n = notch[Math.floor(c.heading / 45) % 8];
            ctx.fillStyle = '#f9fafb';
            ctx.fillRect(x + n[0] * (cell - 6) + 1, y + n[1] * (cell - 6) + 1, 4, 4);
        }

        document.getElementById('epoch').textContent = frame.epoch;
        for (const s of frame.census) {
            const li = document.querySelector('#census li[data-species="' + CSS.escape(s.name) + '"]');
            if (!li) continue;
            li.querySelector('.count').textContent = s.alive;
            li.classList.toggle('extinct', s.alive === 0);
        }

        const winner = document.getElementById('winner');
        if (frame.winner) {
            winner.textContent = frame.winner + ' wins after ' + frame.epoch + ' epochs';
            winner.classList.remove('hidden');
        } else {
            winner.classList.add('hidden');
        }
    }

    function setConnected(ok) {
        const el = document.getElementById('connection-status');
        if (!el) return;
        el.querySelector('span:first-child').className =
            'w-2 h-2 rounded-full ' + (ok ? 'bg-green-500' : 'bg-red-500');
        el.querySelector('span:last-child').textContent = ok ? 'Connected' : 'Disconnected';
    }

    async function refresh() {
        try {
            const resp = await fetch('/api/frame');
            draw(await resp.json());
            setConnected(true);
        } catch (e) {
            setConnected(false);
        }
    }

    async function post(path) {
        const resp = await fetch(path, { method: 'POST' });
        const data = await resp.json();
        await refresh();
        return data;
    }

    document.getElementById('btn-pause').addEventListener('click', async (ev) => {
        const data = await post('/api/pause');
        ev.target.textContent = data.paused ? 'Resume' : 'Pause';
    });
    document.getElementById('btn-step').addEventListener('click', () => post('/api/step'));
    document.getElementById('btn-restart').addEventListener('click', async () => {
        const data = await post('/api/restart');
        document.getElementById('seed').textContent = data.seed;
    });

    refresh();
    setInterval(refresh, Math.max(50, Number(arena.dataset.frameMs) || 100));
})();
`
