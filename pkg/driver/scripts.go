package driver

// Page-side functions evaluated by the driver. Results that carry structure
// are returned as JSON strings so decoding happens on the Go side.
const (
	exportScript = `() => (typeof window.DriftLens !== 'undefined'
		? JSON.stringify(window.DriftLens.exportCapture())
		: null)`

	visibilityScript = `() => {
		if (typeof monitors === 'undefined' || typeof isOutOfViewport === 'undefined') {
			return JSON.stringify({ visible: [], hidden: [] });
		}
		const visible = [];
		const hidden = [];
		monitors.forEach(m => {
			const element = m.getElement();
			if (!element) return;
			(isOutOfViewport(element).all ? hidden : visible).push(Number(m.id));
		});
		return JSON.stringify({ visible, hidden });
	}`

	scrollEndSupportScript = `() => 'onscrollend' in window`

	scrollByScript = `(distance) => window.scrollBy({ top: distance, behavior: 'smooth' })`

	awaitScrollEndScript = `(timeout) => new Promise(resolve => {
		document.addEventListener('scrollend', resolve, { once: true });
		setTimeout(resolve, timeout);
	})`
)

func readyScript(expression string) string {
	return "() => Boolean(" + expression + ")"
}
