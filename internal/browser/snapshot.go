package browser

// snapshotScript renders a textual structural snapshot of the page, one node
// per line. Interactive elements are tagged with data-prism-ref attributes so
// that snapshot refs (e.g. "e12") resolve back to concrete elements for
// Click/Fill. The core never parses the DOM itself; this text is all it sees.
//
// Line shape examples:
//
//	- heading "Dashboard" [level=1]
//	- link "Settings" [href=/settings]
//	- textbox "Email address" [type=email] [ref=e3]
//	- button "Sign in" [ref=e7]
//	- button "Delete" [disabled] [ref=e9]
const snapshotScript = `(function(includeInteractive) {
  let refCounter = 0;
  const lines = [];

  function label(el) {
    const aria = el.getAttribute && el.getAttribute('aria-label');
    if (aria) return aria;
    if (el.id) {
      const lab = document.querySelector('label[for="' + el.id + '"]');
      if (lab && lab.textContent) return lab.textContent.trim();
    }
    if (el.placeholder) return el.placeholder;
    if (el.name) return el.name;
    const text = (el.textContent || '').trim().replace(/\s+/g, ' ');
    return text.slice(0, 80);
  }

  function tagRef(el) {
    if (!includeInteractive) return '';
    if (!el.hasAttribute('data-prism-ref')) {
      refCounter++;
      el.setAttribute('data-prism-ref', 'e' + refCounter);
    }
    return ' [ref=' + el.getAttribute('data-prism-ref') + ']';
  }

  function visible(el) {
    const r = el.getBoundingClientRect();
    return r.width > 0 && r.height > 0;
  }

  const selector = 'h1,h2,h3,a[href],input,textarea,select,button,[role=button],[role=tab],main,nav,form';
  document.querySelectorAll(selector).forEach(function(el) {
    if (!visible(el)) return;
    const tag = el.tagName.toLowerCase();
    const role = el.getAttribute('role');
    let line;
    if (tag === 'h1' || tag === 'h2' || tag === 'h3') {
      line = '- heading "' + label(el) + '" [level=' + tag.charAt(1) + ']';
    } else if (tag === 'a') {
      line = '- link "' + label(el) + '" [href=' + el.getAttribute('href') + ']';
    } else if (tag === 'input' || tag === 'textarea') {
      const type = (el.getAttribute('type') || 'text').toLowerCase();
      line = '- textbox "' + label(el) + '" [type=' + type + ']' + tagRef(el);
    } else if (tag === 'select') {
      line = '- combobox "' + label(el) + '"' + tagRef(el);
    } else if (tag === 'button' || role === 'button' || role === 'tab') {
      const kind = role === 'tab' ? 'tab' : 'button';
      line = '- ' + kind + ' "' + label(el) + '"';
      if (el.disabled || el.getAttribute('aria-disabled') === 'true') line += ' [disabled]';
      line += tagRef(el);
    } else if (tag === 'main' || tag === 'nav' || tag === 'form') {
      line = '- ' + tag;
    }
    if (line) lines.push(line);
  });

  return lines.join('\n');
})(%INCLUDE_INTERACTIVE%)`

// refSelector converts a snapshot ref like "e12" into the CSS selector that
// resolves it. Anything that does not look like a ref is treated as a raw
// CSS selector by the caller.
func refSelector(ref string) string {
	return `[data-prism-ref="` + ref + `"]`
}

// looksLikeRef reports whether s has the snapshot-ref shape ("e" + digits).
func looksLikeRef(s string) bool {
	if len(s) < 2 || s[0] != 'e' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
