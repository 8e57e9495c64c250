package banktest

import (
	"fmt"
	"net/http"
)

// Handler serves a stand-in for the manager view of the XYZ Bank demo at
// "/". It renders the same element attributes as the demo, so
// xyzbank.BankManagerSelectors apply unchanged. Customers live in the
// browser's localStorage: every browser session starts from the demo
// customers and sees only its own changes.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		fmt.Fprint(w, managerPage)
	})
	return mux
}

// ManagerPath is the URL fragment of the manager view, to append to the
// fixture server's URL.
const ManagerPath = "/#/manager"

const managerPage = `<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>XYZ Bank</title>
	<style>
		.hidden { display: none; }
		table.table td { padding: 2px 8px; }
	</style>
</head>
<body>
	<div class="center">
		<button class="btn btn-lg tab" ng-click="addCust()">Add Customer</button>
		<button class="btn btn-lg tab" ng-click="openAccount()">Open Account</button>
		<button class="btn btn-lg tab" ng-click="showCust()">Customers</button>
	</div>
	<div id="view"></div>
<script>
(function() {
	var storageKey = "xyzbank.customers";
	var demo = [
		{id: 1, fName: "Hermoine", lName: "Granger", postCd: "E859AB"},
		{id: 2, fName: "Harry", lName: "Potter", postCd: "E725JB"},
		{id: 3, fName: "Ron", lName: "Weasly", postCd: "E55555"},
		{id: 4, fName: "Albus", lName: "Dumbledore", postCd: "E55656"},
		{id: 5, fName: "Neville", lName: "Longbottom", postCd: "E89898"}
	];
	var state = {sortKey: "", sortReverse: false, search: ""};

	function load() {
		var raw = window.localStorage.getItem(storageKey);
		return raw ? JSON.parse(raw) : demo.slice();
	}
	function save(customers) {
		window.localStorage.setItem(storageKey, JSON.stringify(customers));
	}
	function el(tag, attrs, text) {
		var e = document.createElement(tag);
		for (var k in attrs) {
			e.setAttribute(k, attrs[k]);
		}
		if (text !== undefined) {
			e.textContent = text;
		}
		return e;
	}
	// Views appear after a short delay, like the demo's route changes.
	function show(build) {
		var view = document.getElementById("view");
		view.innerHTML = "";
		window.setTimeout(function() {
			view.innerHTML = "";
			view.appendChild(build());
		}, 50);
	}

	function addCustomerView() {
		var scope = el("div", {"class": "ng-scope"});
		var form = el("form", {name: "myForm"});
		var first = el("input", {type: "text", "ng-model": "fName", placeholder: "First Name", required: ""});
		var last = el("input", {type: "text", "ng-model": "lName", placeholder: "Last Name", required: ""});
		var post = el("input", {type: "text", "ng-model": "postCd", placeholder: "Post Code", required: ""});
		form.appendChild(first);
		form.appendChild(last);
		form.appendChild(post);
		form.appendChild(el("button", {type: "submit", "class": "btn btn-default"}, "Add Customer"));
		form.addEventListener("submit", function(ev) {
			ev.preventDefault();
			var customers = load();
			for (var i = 0; i < customers.length; i++) {
				if (customers[i].fName === first.value && customers[i].lName === last.value) {
					window.alert("Please check the details. Customer may be duplicate.");
					return;
				}
			}
			var id = 1;
			customers.forEach(function(c) { if (c.id >= id) { id = c.id + 1; } });
			customers.push({id: id, fName: first.value, lName: last.value, postCd: post.value});
			save(customers);
			form.reset();
			window.alert("Customer added successfully with customer id :" + id);
		});
		scope.appendChild(form);
		return scope;
	}

	function rows() {
		var q = state.search.toLowerCase();
		var out = load().filter(function(c) {
			return !q || [c.fName, c.lName, c.postCd].some(function(v) {
				return v.toLowerCase().indexOf(q) >= 0;
			});
		});
		if (state.sortKey) {
			var key = state.sortKey, dir = state.sortReverse ? -1 : 1;
			out = out.map(function(c, i) { return {c: c, i: i}; });
			out.sort(function(a, b) {
				var x = a.c[key].toLowerCase(), y = b.c[key].toLowerCase();
				if (x !== y) {
					return x < y ? -dir : dir;
				}
				return a.i - b.i;
			});
			out = out.map(function(e) { return e.c; });
		}
		return out;
	}

	function renderBody(tbody) {
		tbody.innerHTML = "";
		rows().forEach(function(c) {
			var tr = el("tr", {"class": "ng-scope"});
			tr.appendChild(el("td", {}, c.fName));
			tr.appendChild(el("td", {}, c.lName));
			tr.appendChild(el("td", {}, c.postCd));
			tr.appendChild(el("td", {}, ""));
			var td = el("td", {});
			var del = el("button", {"ng-click": "deleteCust(cust)"}, "Delete");
			del.addEventListener("click", function() {
				save(load().filter(function(o) { return o.id !== c.id; }));
				renderBody(tbody);
			});
			td.appendChild(del);
			tr.appendChild(td);
			tbody.appendChild(tr);
		});
	}

	function customersView() {
		var scope = el("div", {"class": "ng-scope"});
		var search = el("input", {type: "text", "ng-model": "searchCustomer", placeholder: "Search Customer"});
		scope.appendChild(search);
		var table = el("table", {"class": "table table-bordered table-striped"});
		var head = el("thead", {});
		var htr = el("tr", {});
		var tbody = el("tbody", {});
		[["fName", "First Name"], ["lName", "Last Name"], ["postCd", "Post Code"]].forEach(function(col) {
			var td = el("td", {});
			var a = el("a", {href: ""}, col[1]);
			a.addEventListener("click", function(ev) {
				ev.preventDefault();
				state.sortKey = col[0];
				state.sortReverse = !state.sortReverse;
				renderBody(tbody);
			});
			td.appendChild(a);
			htr.appendChild(td);
		});
		htr.appendChild(el("td", {}, "Account Number"));
		htr.appendChild(el("td", {}, "Delete Customer"));
		head.appendChild(htr);
		table.appendChild(head);
		table.appendChild(tbody);
		search.addEventListener("input", function() {
			state.search = search.value;
			renderBody(tbody);
		});
		renderBody(tbody);
		scope.appendChild(table);
		return scope;
	}

	document.querySelector("[ng-click='addCust()']").addEventListener("click", function() {
		show(addCustomerView);
	});
	document.querySelector("[ng-click='showCust()']").addEventListener("click", function() {
		state.search = "";
		show(customersView);
	});
})();
</script>
</body>
</html>
`
