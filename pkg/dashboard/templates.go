package dashboard

// HTML templates for the dashboard pages.
// These are embedded as strings and parsed at runtime.

const layoutTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Critters</title>
    <script src="https://cdn.tailwindcss.com"></script>
    <link rel="stylesheet" href="/static/style.css">
</head>
<body class="bg-gray-900 text-gray-100 min-h-screen">
    <!-- Navigation -->
    <nav class="bg-gray-800 border-b border-gray-700 sticky top-0 z-50">
        <div class="container mx-auto px-4">
            <div class="flex items-center justify-between h-16">
                <div class="flex items-center space-x-8">
                    <a href="/" class="flex items-center space-x-2">
                        <svg class="w-8 h-8 text-green-500" fill="currentColor" viewBox="0 0 24 24">
                            <path d="M3 3h8v8H3zM13 13h8v8h-8zM13 3h8v8h-8z"/>
                        </svg>
                        <span class="text-xl font-bold text-white">Critters</span>
                    </a>
                    <div class="hidden md:flex items-center space-x-4">
                        <a href="/" class="px-3 py-2 rounded-md text-sm font-medium {{if eq .PageName "home"}}bg-gray-900 text-white{{else}}text-gray-300 hover:bg-gray-700 hover:text-white{{end}}">Arena</a>
                        <a href="/standings" class="px-3 py-2 rounded-md text-sm font-medium {{if eq .PageName "standings"}}bg-gray-900 text-white{{else}}text-gray-300 hover:bg-gray-700 hover:text-white{{end}}">Standings</a>
                    </div>
                </div>
                <div id="connection-status" class="flex items-center space-x-2">
                    <span class="w-2 h-2 rounded-full bg-green-500"></span>
                    <span class="text-sm text-gray-300">Connected</span>
                </div>
            </div>
        </div>
    </nav>

    <!-- Main Content -->
    <main class="container mx-auto px-4 py-6">
        {{.Content}}
    </main>

    <script src="/static/app.js"></script>
</body>
</html>`

const homeTemplate = `
<div class="grid grid-cols-1 lg:grid-cols-3 gap-6" id="arena" data-frame-ms="{{.Frame}}">
    <div class="lg:col-span-2 bg-gray-800 rounded-lg p-4 border border-gray-700">
        <div class="flex items-center justify-between mb-4">
            <h2 class="text-lg font-semibold">Epoch <span id="epoch" class="mono">0</span></h2>
            <div class="space-x-2">
                <button id="btn-pause" class="btn">Pause</button>
                <button id="btn-step" class="btn">Step</button>
                <button id="btn-restart" class="btn">Restart</button>
            </div>
        </div>
        <canvas id="grid" class="grid-canvas" data-width="{{.Width}}" data-height="{{.Height}}"></canvas>
        <p id="winner" class="mt-4 text-green-400 font-semibold hidden"></p>
    </div>

    <div class="bg-gray-800 rounded-lg p-4 border border-gray-700">
        <h2 class="text-lg font-semibold mb-2">Census</h2>
        <p class="text-gray-400 text-sm mb-4">{{.Width}} &times; {{.Height}} grid, seed <span id="seed" class="mono">{{.Seed}}</span></p>
        <ul id="census" class="space-y-2">
            {{range .Species}}
            <li class="flex items-center justify-between" data-species="{{.Name}}" data-color="{{.Color}}">
                <span class="flex items-center space-x-2">
                    <span class="swatch"></span>
                    <span>{{.Name}}</span>
                </span>
                <span class="mono count">0</span>
            </li>
            {{end}}
        </ul>
    </div>
</div>
`

const standingsTemplate = `
<div class="bg-gray-800 rounded-lg border border-gray-700">
    <div class="px-6 py-4 border-b border-gray-700">
        <h2 class="text-lg font-semibold">Standings</h2>
    </div>
    {{if not .Enabled}}
    <p class="px-6 py-4 text-gray-400">No standings table is attached. Run a headless batch to collect standings.</p>
    {{else if .Error}}
    <p class="px-6 py-4 text-red-400">{{.Error}}</p>
    {{else if not .Standings}}
    <p class="px-6 py-4 text-gray-400">No rounds recorded yet.</p>
    {{else}}
    <table class="min-w-full">
        <thead>
            <tr class="text-left text-gray-400 text-sm">
                <th class="px-6 py-3">#</th>
                <th class="px-6 py-3">Species</th>
                <th class="px-6 py-3">Rounds</th>
                <th class="px-6 py-3">Wins</th>
                <th class="px-6 py-3">Survived</th>
                <th class="px-6 py-3">Capped</th>
                <th class="px-6 py-3">Win rate</th>
            </tr>
        </thead>
        <tbody>
            {{range $i, $s := .Standings}}
            <tr class="border-t border-gray-700">
                <td class="px-6 py-3">{{add $i 1}}</td>
                <td class="px-6 py-3">{{$s.Species}}</td>
                <td class="px-6 py-3 mono">{{$s.Rounds}}</td>
                <td class="px-6 py-3 mono">{{$s.Wins}}</td>
                <td class="px-6 py-3 mono">{{$s.Survived}}</td>
                <td class="px-6 py-3 mono">{{$s.Capped}}</td>
                <td class="px-6 py-3 mono">{{percent $s.WinRate}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>
    {{end}}
</div>
`
